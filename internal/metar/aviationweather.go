// Package metar keeps local pressure observations flowing into the
// datastore and answers QNH lookups through a layered cache.
package metar

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gatasproject/gatas-server/pkg/adsb"
	"github.com/gatasproject/gatas-server/pkg/model"
)

// DefaultCacheURL is the aviationweather.gov bulk METAR export.
const DefaultCacheURL = "https://aviationweather.gov/data/cache/metars.cache.xml.gz"

// missingCoordinate is the placeholder aviationweather.gov uses for
// stations without a known position.
const missingCoordinate = -99.9

// UpdaterStore is the slice of the datastore the updater needs.
type UpdaterStore interface {
	ScanFleet(ctx context.Context, limit int) ([]model.OwnshipPosition, error)
	AddMetar(ctx context.Context, m model.MetarInfo) error
}

// UpdaterConfig configures the periodic METAR refresh.
type UpdaterConfig struct {
	// URL of the gzipped METAR cache XML.
	URL string

	// FetchInterval is the maximum age before an unconditional refetch.
	FetchInterval time.Duration

	// LoopDelay is the pause between scheduler wakeups.
	LoopDelay time.Duration

	// Timeout bounds one download.
	Timeout time.Duration
}

// DefaultUpdaterConfig matches the upstream publication cadence: fresh
// files appear a few minutes past each quarter hour.
func DefaultUpdaterConfig() UpdaterConfig {
	return UpdaterConfig{
		URL:           DefaultCacheURL,
		FetchInterval: 15 * time.Minute,
		LoopDelay:     15 * time.Second,
		Timeout:       30 * time.Second,
	}
}

// Updater periodically downloads the METAR bulk export and stores every
// usable observation. It stays idle while no devices are active, the
// weather data has no consumer then.
type Updater struct {
	cfg       UpdaterConfig
	store     UpdaterStore
	client    *http.Client
	lastFetch time.Time
	now       func() time.Time
}

// NewUpdater creates an updater writing into the given store.
func NewUpdater(cfg UpdaterConfig, store UpdaterStore) *Updater {
	return &Updater{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// Run loops until the context is cancelled.
func (u *Updater) Run(ctx context.Context) error {
	for {
		u.tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(u.cfg.LoopDelay):
		}
	}
}

func (u *Updater) tick(ctx context.Context) {
	fleet, err := u.store.ScanFleet(ctx, 1)
	if err != nil {
		log.Printf("metar: fleet check failed: %v", err)
		return
	}
	if len(fleet) == 0 {
		return
	}

	now := u.now().UTC()
	if !u.shouldFetch(now) {
		return
	}

	metars, err := adsb.RetryWithBackoffResult(ctx, adsb.RetryConfig{
		MaxRetries:   2,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}, func() ([]model.MetarInfo, error) {
		return u.fetch(ctx)
	})
	if err != nil {
		log.Printf("metar: fetch failed: %v", err)
		return
	}

	stored := 0
	for _, m := range metars {
		if err := u.store.AddMetar(ctx, m); err != nil {
			log.Printf("metar: store %s failed: %v", m.StationID, err)
			continue
		}
		stored++
	}
	u.lastFetch = now
	log.Printf("metar: stored %d of %d observations", stored, len(metars))
}

// shouldFetch is true when the last fetch is stale, or when the clock
// is in one of the minutes right after upstream publishes a new file.
// The two minute guard keeps one publication window from triggering a
// fetch on every wakeup.
func (u *Updater) shouldFetch(now time.Time) bool {
	if u.lastFetch.IsZero() {
		return true
	}
	since := now.Sub(u.lastFetch)
	if since >= u.cfg.FetchInterval {
		return true
	}
	switch now.Minute() {
	case 10, 25, 40, 55:
		return since >= 2*time.Minute
	}
	return false
}

func (u *Updater) fetch(ctx context.Context) ([]model.MetarInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download metar cache: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metar cache returned status %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	var doc metarResponse
	if err := xml.NewDecoder(gz).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse metar xml: %w", err)
	}
	return convertMetars(doc), nil
}

// metarResponse mirrors the aviationweather.gov cache XML.
type metarResponse struct {
	Data struct {
		METARs []metarXML `xml:"METAR"`
	} `xml:"data"`
}

type metarXML struct {
	StationID          string   `xml:"station_id"`
	ObservationTime    string   `xml:"observation_time"`
	Latitude           *float64 `xml:"latitude"`
	Longitude          *float64 `xml:"longitude"`
	AltimInHg          *float64 `xml:"altim_in_hg"`
	SeaLevelPressureMb *float64 `xml:"sea_level_pressure_mb"`
	ElevationM         *float64 `xml:"elevation_m"`
}

// convertMetars drops stations without a usable position or pressure
// and normalizes the rest.
func convertMetars(doc metarResponse) []model.MetarInfo {
	out := make([]model.MetarInfo, 0, len(doc.Data.METARs))
	for _, m := range doc.Data.METARs {
		if m.StationID == "" || m.Latitude == nil || m.Longitude == nil {
			continue
		}
		if *m.Latitude == missingCoordinate || *m.Longitude == missingCoordinate {
			continue
		}

		qnh, ok := pressureHPa(m)
		if !ok {
			continue
		}

		info := model.MetarInfo{
			StationID: m.StationID,
			Latitude:  *m.Latitude,
			Longitude: *m.Longitude,
			QNH:       qnh,
		}
		if m.ElevationM != nil {
			info.Elevation = int(*m.ElevationM)
		}
		if t, err := time.Parse(time.RFC3339, m.ObservationTime); err == nil {
			info.ObservationTime = t
		}
		out = append(out, info)
	}
	return out
}

// pressureHPa prefers the sea level pressure and falls back to the
// altimeter setting.
func pressureHPa(m metarXML) (float64, bool) {
	if m.SeaLevelPressureMb != nil {
		return *m.SeaLevelPressureMb, true
	}
	if m.AltimInHg != nil {
		return *m.AltimInHg * model.InHgToHPa, true
	}
	return 0, false
}
