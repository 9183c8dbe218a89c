package metar

import (
	"context"
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gatasproject/gatas-server/internal/store"
	"github.com/gatasproject/gatas-server/pkg/model"
)

// QNHStore is the slice of the datastore the QNH lookup needs.
type QNHStore interface {
	MetarByH3(ctx context.Context, cell int64) (model.MetarInfo, bool, error)
	NearbyMetars(ctx context.Context, lat, lon float64) ([]model.MetarInfo, error)
	AddMetarByH3(ctx context.Context, cell int64, m model.MetarInfo) error
}

// Shared cache sizing. Cells expire well before the observations behind
// them do.
const (
	sharedCacheSize = 1024
	sharedCacheTTL  = 5 * time.Minute
)

// QNHService answers local pressure lookups through three layers: a
// per-request map, a shared in-process cache and the datastore's H3
// cell collection, falling back to a station search that backfills the
// cell. Positions with no station in range use standard pressure.
type QNHService struct {
	store  QNHStore
	shared *expirable.LRU[int64, float64]
}

// NewQNHService creates the service with an empty shared cache.
func NewQNHService(st QNHStore) *QNHService {
	return &QNHService{
		store:  st,
		shared: expirable.NewLRU[int64, float64](sharedCacheSize, nil, sharedCacheTTL),
	}
}

// NewRequestCache starts a fresh per-request layer. One device request
// resolves many contacts in the same few cells, the local map makes
// those lookups free.
func (s *QNHService) NewRequestCache() *RequestCache {
	return &RequestCache{svc: s, local: make(map[int64]float64)}
}

// RequestCache is the per-request QNH lookup. Not safe for concurrent
// use, each request handler builds its own.
type RequestCache struct {
	svc   *QNHService
	local map[int64]float64
}

// QNH returns the local pressure in hPa for a position.
func (r *RequestCache) QNH(ctx context.Context, lat, lon float64) float64 {
	cell := store.H3Cell(lat, lon)
	if v, ok := r.local[cell]; ok {
		return v
	}
	v := r.svc.lookup(ctx, cell, lat, lon)
	r.local[cell] = v
	return v
}

func (s *QNHService) lookup(ctx context.Context, cell int64, lat, lon float64) float64 {
	if v, ok := s.shared.Get(cell); ok {
		return v
	}

	if m, found, err := s.store.MetarByH3(ctx, cell); err != nil {
		log.Printf("metar: cell lookup failed: %v", err)
	} else if found {
		s.shared.Add(cell, m.QNH)
		return m.QNH
	}

	nearby, err := s.store.NearbyMetars(ctx, lat, lon)
	if err != nil {
		log.Printf("metar: station search failed: %v", err)
		return model.StandardQNH
	}
	if len(nearby) == 0 {
		return model.StandardQNH
	}

	// Nearest station wins, and the cell gets backfilled so the next
	// lookup in this area skips the search.
	m := nearby[0]
	if err := s.store.AddMetarByH3(ctx, cell, m); err != nil {
		log.Printf("metar: cell backfill failed: %v", err)
	}
	s.shared.Add(cell, m.QNH)
	return m.QNH
}
