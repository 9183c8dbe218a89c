package dispatch

import (
	"context"
	"log"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// AircraftStore is the slice of the datastore the feeder writes.
type AircraftStore interface {
	StoreAircraft(ctx context.Context, positions []model.AircraftPosition) error
}

// Feeder is the single consumer of the fetch result channel. It stores
// successful batches and logs the rest.
type Feeder struct {
	store   AircraftStore
	results <-chan model.FetchResult
}

// NewFeeder creates a feeder draining results into the store.
func NewFeeder(store AircraftStore, results <-chan model.FetchResult) *Feeder {
	return &Feeder{store: store, results: results}
}

// Run consumes results until the context is cancelled or the channel
// is closed.
func (f *Feeder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-f.results:
			if !ok {
				return nil
			}
			f.consume(ctx, r)
		}
	}
}

func (f *Feeder) consume(ctx context.Context, r model.FetchResult) {
	if r.Status != model.FetchSuccess {
		log.Printf("dispatch: %s fetch %s: %s", r.Source, r.Status, r.Message)
		return
	}
	if len(r.Positions) == 0 {
		return
	}
	if err := f.store.StoreAircraft(ctx, r.Positions); err != nil {
		log.Printf("dispatch: store %d positions from %s failed: %v", len(r.Positions), r.Source, err)
	}
}
