package adsb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// AirplanesLiveMaxRadiusMeters is the 250 nautical mile limit of the
// airplanes.live REST API.
const AirplanesLiveMaxRadiusMeters = 250 * model.MetersPerNauticalMile

// AirplanesLiveClient implements Provider for the airplanes.live API.
// API documentation: https://airplanes.live/api-guide/
// Rate limit: 1 request per second without an API key.
type AirplanesLiveClient struct {
	// baseURL is the API base URL (default: https://rest.api.airplanes.live)
	baseURL string

	// apiKey is sent in the "auth" header when set.
	apiKey string

	// httpClient is the HTTP client used for API requests.
	httpClient *http.Client
}

// NewAirplanesLiveClient creates a new airplanes.live API client.
// baseURL should be "https://rest.api.airplanes.live" (or custom for
// testing), apiKey may be empty for anonymous access.
func NewAirplanesLiveClient(baseURL, apiKey string, timeout time.Duration) *AirplanesLiveClient {
	return &AirplanesLiveClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (c *AirplanesLiveClient) Name() string { return "airplanes.live" }

// MaxRadiusMeters implements Provider.
func (c *AirplanesLiveClient) MaxRadiusMeters() float64 { return AirplanesLiveMaxRadiusMeters }

// FetchPositions returns all aircraft within radiusMeters of the given
// center, using the ?circle=[lat],[lon],[radius] endpoint.
func (c *AirplanesLiveClient) FetchPositions(ctx context.Context, lat, lon, radiusMeters float64) ([]model.AircraftPosition, error) {
	if radiusMeters > AirplanesLiveMaxRadiusMeters {
		radiusMeters = AirplanesLiveMaxRadiusMeters
	}
	nm := radiusMeters / model.MetersPerNauticalMile

	url := fmt.Sprintf("%s/?circle=%.6f,%.6f,%.0f", c.baseURL, lat, lon, nm)
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"auth": c.apiKey}
	}
	return fetchReadsb(ctx, c.httpClient, url, headers)
}
