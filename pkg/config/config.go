// Package config loads the server configuration from a JSON file with
// environment overrides for secrets.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Admin     AdminConfig      `json:"admin"`
	Tile38    Tile38Config     `json:"tile38"`
	Providers []ProviderConfig `json:"providers"`
	Dispatch  DispatchConfig   `json:"dispatch"`
	Metar     MetarConfig      `json:"metar"`
	Geoid     GeoidConfig      `json:"geoid"`
	Log       LogConfig        `json:"log"`
}

// ServerConfig contains the UDP device server settings.
type ServerConfig struct {
	// Port is the UDP port devices send to (default: 3000)
	Port int `json:"port"`

	// Host is the bind address (default: "0.0.0.0")
	Host string `json:"host"`

	// HandlerTimeoutMs bounds the handling of one datagram
	HandlerTimeoutMs int `json:"handler_timeout_ms"`

	// MaxContacts caps the traffic list in one reply
	MaxContacts int `json:"max_contacts"`
}

// AdminConfig contains the admin HTTP API settings.
type AdminConfig struct {
	// Port is the HTTP port (default: 8080)
	Port int `json:"port"`

	// Host is the bind address
	Host string `json:"host"`

	// Enabled determines if the admin API should be served
	Enabled bool `json:"enabled"`

	// JWTSecret signs device tokens. Empty leaves the API open.
	// Should be set via GATAS_JWT_SECRET rather than the config file.
	JWTSecret string `json:"jwt_secret,omitempty"`

	// RequestsPerSecond caps the whole API
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// Tile38Config contains the geospatial datastore connection settings.
type Tile38Config struct {
	// Host is the Tile38 server hostname
	Host string `json:"host"`

	// Port is the Tile38 server port (default: 9851)
	Port int `json:"port"`

	// MaxIdle is the idle connection count per pool
	MaxIdle int `json:"max_idle"`

	// MaxActive is the connection cap per pool, 0 = unlimited
	MaxActive int `json:"max_active"`
}

// Addr returns the host:port dial address.
func (c Tile38Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProviderConfig represents a single live traffic provider.
type ProviderConfig struct {
	// Name is a friendly name for this provider
	Name string `json:"name"`

	// Type is the provider type: "adsb.fi", "airplanes.live" or
	// "stream" for a push feed over a websocket
	Type string `json:"type"`

	// Enabled determines if this provider should be used
	Enabled bool `json:"enabled"`

	// BaseURL is the API base URL
	BaseURL string `json:"base_url"`

	// APIKey for providers that require authentication.
	// Should be set via GATAS_PROVIDER_API_KEY rather than the config file.
	APIKey string `json:"api_key,omitempty"`

	// TimeoutMs bounds one fetch (default: 750)
	TimeoutMs int `json:"timeout_ms"`
}

// DispatchConfig tunes the traffic fetch loop.
type DispatchConfig struct {
	// FleetCheckIntervalMs is the idle sleep while no devices are active
	FleetCheckIntervalMs int `json:"fleet_check_interval_ms"`

	// ClusterIntervalMs is how long a clustering stays in use
	ClusterIntervalMs int `json:"cluster_interval_ms"`

	// MinRequestIntervalMs is the per-provider pacing floor
	MinRequestIntervalMs int `json:"min_request_interval_ms"`

	// ResultBuffer is the fetch result channel capacity
	ResultBuffer int `json:"result_buffer"`
}

// MetarConfig tunes the weather ingestion job.
type MetarConfig struct {
	// Enabled determines if METAR ingestion should run
	Enabled bool `json:"enabled"`

	// URL of the gzipped METAR cache XML
	URL string `json:"url"`
}

// GeoidConfig locates the EGM2008 offset grid.
type GeoidConfig struct {
	// GridPath is the path to the binary offset grid file
	GridPath string `json:"grid_path"`
}

// LogConfig contains optional rotating file logging. An empty File
// keeps logging on stderr.
type LogConfig struct {
	// File is the log file path
	File string `json:"file"`

	// MaxSizeMB rotates the file past this size
	MaxSizeMB int `json:"max_size_mb"`

	// MaxBackups is how many rotated files to keep
	MaxBackups int `json:"max_backups"`

	// MaxAgeDays drops rotated files older than this
	MaxAgeDays int `json:"max_age_days"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             3000,
			Host:             "0.0.0.0",
			HandlerTimeoutMs: 900,
			MaxContacts:      15,
		},
		Admin: AdminConfig{
			Port:              8080,
			Host:              "0.0.0.0",
			Enabled:           true,
			RequestsPerSecond: 10,
		},
		Tile38: Tile38Config{
			Host:    "localhost",
			Port:    9851,
			MaxIdle: 8,
		},
		Providers: []ProviderConfig{
			{
				Name:      "adsb.fi",
				Type:      "adsb.fi",
				Enabled:   true,
				BaseURL:   "https://opendata.adsb.fi/api/v2",
				TimeoutMs: 750,
			},
			{
				Name:      "airplanes.live",
				Type:      "airplanes.live",
				Enabled:   false, // requires an API key
				BaseURL:   "https://api.airplanes.live/v2/point",
				TimeoutMs: 750,
			},
		},
		Dispatch: DispatchConfig{
			FleetCheckIntervalMs: 5000,
			ClusterIntervalMs:    60000,
			MinRequestIntervalMs: 1050,
			ResultBuffer:         16,
		},
		Metar: MetarConfig{
			Enabled: true,
			URL:     "https://aviationweather.gov/data/cache/metars.cache.xml.gz",
		},
		Geoid: GeoidConfig{
			GridPath: "data/egm2008.bin",
		},
		Log: LogConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Validate checks the configuration for values the server cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Admin.Enabled && (c.Admin.Port < 1 || c.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port %d", c.Admin.Port)
	}
	if c.Tile38.Host == "" {
		return fmt.Errorf("tile38 host is required")
	}

	queryable := 0
	for _, p := range c.Providers {
		if !p.Enabled {
			continue
		}
		switch p.Type {
		case "adsb.fi", "airplanes.live":
			queryable++
		case "stream":
		default:
			return fmt.Errorf("unknown provider type %q", p.Type)
		}
		if p.BaseURL == "" {
			return fmt.Errorf("provider %q has no base URL", p.Name)
		}
		if p.Type == "airplanes.live" && p.APIKey == "" {
			return fmt.Errorf("provider %q requires an API key", p.Name)
		}
	}
	if queryable == 0 {
		return fmt.Errorf("at least one radius-query provider must be enabled")
	}
	return nil
}

// applyEnvironmentOverrides applies environment variable overrides.
// This allows sensitive data like API keys to be kept out of config
// files.
func (c *Config) applyEnvironmentOverrides() {
	if secret := os.Getenv("GATAS_JWT_SECRET"); secret != "" {
		c.Admin.JWTSecret = secret
	}
	if apiKey := os.Getenv("GATAS_PROVIDER_API_KEY"); apiKey != "" {
		for i := range c.Providers {
			if c.Providers[i].Type == "airplanes.live" {
				c.Providers[i].APIKey = apiKey
			}
		}
	}
	if host := os.Getenv("GATAS_TILE38_HOST"); host != "" {
		c.Tile38.Host = host
	}
}
