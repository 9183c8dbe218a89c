// Package adsb aggregates live traffic from public ADS-B data
// providers and normalizes it into the internal aircraft model.
package adsb

import (
	"context"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// Provider is the interface all live traffic providers implement.
// Implementations must be safe for use from a single dispatcher
// goroutine; they are never called concurrently with themselves.
type Provider interface {
	// Name identifies the provider in logs and fetch results.
	Name() string

	// MaxRadiusMeters is the largest search radius the provider
	// accepts. The dispatcher clips its requests to this value.
	MaxRadiusMeters() float64

	// FetchPositions returns all aircraft within radiusMeters of the
	// given center. The context carries the fetch deadline.
	FetchPositions(ctx context.Context, lat, lon, radiusMeters float64) ([]model.AircraftPosition, error)
}
