// Package dispatch keeps the datastore populated with live traffic by
// fanning a bounded set of rate limited providers out over clusters of
// active devices.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gatasproject/gatas-server/pkg/adsb"
	"github.com/gatasproject/gatas-server/pkg/cluster"
	"github.com/gatasproject/gatas-server/pkg/geo"
	"github.com/gatasproject/gatas-server/pkg/model"
)

// Fetch radius bounds in meters. The buffer widens each query past the
// cluster edge so devices near the rim still see traffic, the floor
// keeps tiny clusters from producing pinhole queries.
const (
	radiusBufferMeters   = 25000
	minFetchRadiusMeters = 100000
)

// FleetSource is the slice of the datastore the dispatcher reads.
type FleetSource interface {
	ScanFleet(ctx context.Context, limit int) ([]model.OwnshipPosition, error)
}

// Options tune the dispatcher loop.
type Options struct {
	// FleetCheckInterval is the idle sleep while no devices are active.
	FleetCheckInterval time.Duration

	// ClusterInterval is how long a clustering stays in use before the
	// fleet is re-clustered.
	ClusterInterval time.Duration

	// MinRequestInterval is the per-provider pacing floor and the sleep
	// between ticks.
	MinRequestInterval time.Duration

	// FetchTimeout bounds one provider fetch.
	FetchTimeout time.Duration

	// FetchDelay is the pause between fetches within one tick.
	FetchDelay time.Duration

	// FleetScanLimit bounds the fleet poll.
	FleetScanLimit int
}

// DefaultOptions returns the production loop timings.
func DefaultOptions() Options {
	return Options{
		FleetCheckInterval: 5 * time.Second,
		ClusterInterval:    60 * time.Second,
		MinRequestInterval: 1050 * time.Millisecond,
		FetchTimeout:       750 * time.Millisecond,
		FetchDelay:         50 * time.Millisecond,
		FleetScanLimit:     500,
	}
}

// clusterSlot pairs a cluster with its fetch history. Slots are keyed
// by index so the history survives a re-clustering.
type clusterSlot struct {
	cluster   cluster.Cluster
	lastFetch time.Time
}

// assignment pairs a provider with the cluster slot it fetches.
type assignment struct {
	provider int
	slot     int
}

// ClusterDispatcher runs the fetch loop. All state is owned by the
// single Run goroutine.
type ClusterDispatcher struct {
	opts      Options
	providers []adsb.Provider
	fleet     FleetSource
	results   chan<- model.FetchResult

	clusterer   *cluster.FixedRadiusClusterer
	slots       []*clusterSlot
	lastCall    []time.Time // indexed like providers
	lastCluster time.Time

	now func() time.Time
}

// NewClusterDispatcher builds a dispatcher over the given providers.
// Cluster radii follow the providers' maximum query radii, so every
// cluster can be served by at least one provider.
func NewClusterDispatcher(opts Options, providers []adsb.Provider, fleet FleetSource, results chan<- model.FetchResult) (*ClusterDispatcher, error) {
	if len(providers) == 0 {
		return nil, errors.New("dispatch: at least one provider required")
	}

	radii := make([]float64, len(providers))
	for i, p := range providers {
		radii[i] = p.MaxRadiusMeters()
	}
	clusterer, err := cluster.New(radii...)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	return &ClusterDispatcher{
		opts:      opts,
		providers: providers,
		fleet:     fleet,
		results:   results,
		clusterer: clusterer,
		lastCall:  make([]time.Time, len(providers)),
		now:       time.Now,
	}, nil
}

// Run loops until the context is cancelled.
func (d *ClusterDispatcher) Run(ctx context.Context) error {
	for {
		idle, err := d.tick(ctx)
		if err != nil {
			return err
		}
		delay := d.opts.MinRequestInterval
		if idle {
			delay = d.opts.FleetCheckInterval
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// tick runs one scheduling pass. It reports idle when there is no
// fleet to serve.
func (d *ClusterDispatcher) tick(ctx context.Context) (idle bool, err error) {
	fleet, err := d.fleet.ScanFleet(ctx, d.opts.FleetScanLimit)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.Printf("dispatch: fleet scan failed: %v", err)
		return true, nil
	}
	if len(fleet) == 0 {
		return true, nil
	}

	now := d.now()
	if d.slots == nil || now.Sub(d.lastCluster) >= d.opts.ClusterInterval {
		d.recluster(fleet, now)
	}

	for i, a := range d.computeAssignments(now) {
		if i > 0 {
			if err := sleep(ctx, d.opts.FetchDelay); err != nil {
				return false, err
			}
		}
		d.fetchOne(ctx, a)
	}
	return false, nil
}

// recluster recomputes the clustering and carries each slot's fetch
// history over by index. Surplus slots from a shrunken fleet are
// dropped together with their history.
func (d *ClusterDispatcher) recluster(fleet []model.OwnshipPosition, now time.Time) {
	points := make([]geo.LatLon, len(fleet))
	for i, own := range fleet {
		points[i] = geo.LatLon{Lat: own.Latitude, Lon: own.Longitude}
	}

	clusters := d.clusterer.Cluster(points)
	slots := make([]*clusterSlot, len(clusters))
	for i, c := range clusters {
		slots[i] = &clusterSlot{cluster: c}
		if i < len(d.slots) {
			slots[i].lastFetch = d.slots[i].lastFetch
		}
	}
	d.slots = slots
	d.lastCluster = now
	log.Printf("dispatch: clustered %d positions into %d clusters", len(points), len(clusters))
}

// computeAssignments pairs idle providers with cluster slots. With
// enough providers to go around, all idle capacity piles onto the
// stalest cluster for fresher data. With more clusters than providers,
// providers rotate in least-recently-used order over unclaimed slots
// so no cluster starves.
func (d *ClusterDispatcher) computeAssignments(now time.Time) []assignment {
	if len(d.slots) == 0 {
		return nil
	}

	var idle []int
	for i := range d.providers {
		if d.lastCall[i].IsZero() || now.Sub(d.lastCall[i]) >= d.opts.MinRequestInterval {
			idle = append(idle, i)
		}
	}
	if len(idle) == 0 {
		return nil
	}

	if len(d.slots) <= len(d.providers) {
		target := d.stalestSlot(nil)
		out := make([]assignment, len(idle))
		for i, p := range idle {
			out[i] = assignment{provider: p, slot: target}
		}
		return out
	}

	sortByLastCall(idle, d.lastCall)
	claimed := make(map[int]bool, len(idle))
	var out []assignment
	for _, p := range idle {
		slot := d.stalestSlot(claimed)
		if slot < 0 {
			break
		}
		claimed[slot] = true
		out = append(out, assignment{provider: p, slot: slot})
	}
	return out
}

// stalestSlot returns the least recently fetched slot outside the
// claimed set, or -1 when every slot is claimed.
func (d *ClusterDispatcher) stalestSlot(claimed map[int]bool) int {
	best := -1
	for i, s := range d.slots {
		if claimed[i] {
			continue
		}
		if best < 0 || s.lastFetch.Before(d.slots[best].lastFetch) {
			best = i
		}
	}
	return best
}

func sortByLastCall(idx []int, lastCall []time.Time) {
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && lastCall[idx[j]].Before(lastCall[idx[j-1]]); j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
}

// fetchOne executes one assignment and emits its result. Timestamps
// are only stamped on success so a failing provider frees its cluster
// for reassignment on the next tick.
func (d *ClusterDispatcher) fetchOne(ctx context.Context, a assignment) {
	p := d.providers[a.provider]
	slot := d.slots[a.slot]
	radius := fetchRadius(slot.cluster.EffectiveRadius, p.MaxRadiusMeters())

	fetchCtx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
	defer cancel()

	center := slot.cluster.Center
	positions, err := p.FetchPositions(fetchCtx, center.Lat, center.Lon, radius)
	if err != nil {
		status := model.FetchFailure
		if errors.Is(err, context.DeadlineExceeded) {
			status = model.FetchTimeout
		}
		d.emit(ctx, model.FetchResult{Source: p.Name(), Status: status, Message: err.Error()})
		return
	}

	now := d.now()
	d.lastCall[a.provider] = now
	slot.lastFetch = now
	d.emit(ctx, model.FetchResult{Source: p.Name(), Status: model.FetchSuccess, Positions: positions})
}

func (d *ClusterDispatcher) emit(ctx context.Context, r model.FetchResult) {
	select {
	case d.results <- r:
	case <-ctx.Done():
	}
}

// fetchRadius pads the effective radius and clips it to what the
// provider accepts. The floor is applied last, a request never goes
// out below the minimum even when a provider advertises less.
func fetchRadius(effective, providerMax float64) float64 {
	r := effective + radiusBufferMeters
	if r > providerMax {
		r = providerMax
	}
	if r < minFetchRadiusMeters {
		r = minFetchRadiusMeters
	}
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
