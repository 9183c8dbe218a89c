package adsb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// AdsbFiMaxRadiusMeters is the 100 nautical mile limit of the adsb.fi
// open data API.
const AdsbFiMaxRadiusMeters = 100 * model.MetersPerNauticalMile

// AdsbFiClient implements Provider for the adsb.fi open data API.
// API documentation: https://github.com/adsbfi/opendata
type AdsbFiClient struct {
	// baseURL is the API base URL (default: https://opendata.adsb.fi/api/v2)
	baseURL string

	// httpClient is the HTTP client used for API requests.
	httpClient *http.Client
}

// NewAdsbFiClient creates a new adsb.fi API client. baseURL should be
// "https://opendata.adsb.fi/api/v2" (or custom for testing), timeout
// bounds each request on top of the per-fetch context deadline.
func NewAdsbFiClient(baseURL string, timeout time.Duration) *AdsbFiClient {
	return &AdsbFiClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (c *AdsbFiClient) Name() string { return "adsb.fi" }

// MaxRadiusMeters implements Provider.
func (c *AdsbFiClient) MaxRadiusMeters() float64 { return AdsbFiMaxRadiusMeters }

// FetchPositions returns all aircraft within radiusMeters of the given
// center, using the /lat/[lat]/lon/[lon]/dist/[nm] endpoint.
func (c *AdsbFiClient) FetchPositions(ctx context.Context, lat, lon, radiusMeters float64) ([]model.AircraftPosition, error) {
	if radiusMeters > AdsbFiMaxRadiusMeters {
		radiusMeters = AdsbFiMaxRadiusMeters
	}
	nm := radiusMeters / model.MetersPerNauticalMile

	url := fmt.Sprintf("%s/lat/%.6f/lon/%.6f/dist/%.0f", c.baseURL, lat, lon, nm)
	return fetchReadsb(ctx, c.httpClient, url, nil)
}
