package metar

import (
	"context"
	"testing"

	"github.com/gatasproject/gatas-server/pkg/model"
)

type fakeQNHStore struct {
	byCell map[int64]model.MetarInfo
	nearby []model.MetarInfo

	cellLookups   int
	stationSearch int
	backfills     map[int64]model.MetarInfo
}

func newFakeQNHStore() *fakeQNHStore {
	return &fakeQNHStore{
		byCell:    make(map[int64]model.MetarInfo),
		backfills: make(map[int64]model.MetarInfo),
	}
}

func (f *fakeQNHStore) MetarByH3(ctx context.Context, cell int64) (model.MetarInfo, bool, error) {
	f.cellLookups++
	m, ok := f.byCell[cell]
	return m, ok, nil
}

func (f *fakeQNHStore) NearbyMetars(ctx context.Context, lat, lon float64) ([]model.MetarInfo, error) {
	f.stationSearch++
	return f.nearby, nil
}

func (f *fakeQNHStore) AddMetarByH3(ctx context.Context, cell int64, m model.MetarInfo) error {
	f.backfills[cell] = m
	f.byCell[cell] = m
	return nil
}

func TestQNHFallsBackToStandardPressure(t *testing.T) {
	st := newFakeQNHStore()
	rc := NewQNHService(st).NewRequestCache()

	if got := rc.QNH(context.Background(), 52.3, 4.77); got != model.StandardQNH {
		t.Errorf("QNH = %f, want standard %f", got, model.StandardQNH)
	}
	if st.stationSearch != 1 {
		t.Errorf("station searches = %d, want 1", st.stationSearch)
	}
	if len(st.backfills) != 0 {
		t.Error("backfilled a cell despite having no observation")
	}
}

func TestQNHNearestStationBackfillsCell(t *testing.T) {
	st := newFakeQNHStore()
	st.nearby = []model.MetarInfo{
		{StationID: "EHAM", QNH: 1009},
		{StationID: "EHRD", QNH: 1011},
	}
	svc := NewQNHService(st)

	if got := svc.NewRequestCache().QNH(context.Background(), 52.3, 4.77); got != 1009 {
		t.Fatalf("QNH = %f, want 1009 from nearest station", got)
	}
	if len(st.backfills) != 1 {
		t.Fatalf("backfills = %d, want 1", len(st.backfills))
	}
	for _, m := range st.backfills {
		if m.StationID != "EHAM" {
			t.Errorf("backfilled %s, want EHAM", m.StationID)
		}
	}

	// Another request in the same area is served from the shared cache
	// without touching the store again.
	lookups, searches := st.cellLookups, st.stationSearch
	if got := svc.NewRequestCache().QNH(context.Background(), 52.3, 4.77); got != 1009 {
		t.Errorf("cached QNH = %f, want 1009", got)
	}
	if st.cellLookups != lookups || st.stationSearch != searches {
		t.Error("second request hit the store instead of the shared cache")
	}
}

func TestQNHPrefersStoredCell(t *testing.T) {
	st := newFakeQNHStore()
	st.nearby = []model.MetarInfo{{StationID: "EHAM", QNH: 1009}}
	svc := NewQNHService(st)

	// Seed every cell the lookup could hash to.
	rc := svc.NewRequestCache()
	_ = rc.QNH(context.Background(), 52.3, 4.77)
	for cell := range st.backfills {
		st.byCell[cell] = model.MetarInfo{StationID: "EHGG", QNH: 1020}
	}

	searches := st.stationSearch
	if got := NewQNHService(st).NewRequestCache().QNH(context.Background(), 52.3, 4.77); got != 1020 {
		t.Errorf("QNH = %f, want 1020 from the stored cell", got)
	}
	if st.stationSearch != searches {
		t.Error("searched stations despite a stored cell observation")
	}
}

func TestQNHRequestCacheDeduplicates(t *testing.T) {
	st := newFakeQNHStore()
	st.nearby = []model.MetarInfo{{StationID: "EHAM", QNH: 1009}}
	rc := NewQNHService(st).NewRequestCache()

	// Points meters apart share an H3 cell at the lookup resolution.
	_ = rc.QNH(context.Background(), 52.3000, 4.7700)
	_ = rc.QNH(context.Background(), 52.3001, 4.7701)

	if st.cellLookups != 1 {
		t.Errorf("cell lookups = %d, want 1 for one shared cell", st.cellLookups)
	}
}
