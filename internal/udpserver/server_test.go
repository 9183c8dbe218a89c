package udpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gatasproject/gatas-server/pkg/model"
	"github.com/gatasproject/gatas-server/pkg/wire"
)

type storedConfig struct {
	lat, lon float64
	cfg      model.FleetConfig
}

type fakeStore struct {
	mu       sync.Mutex
	ownships []model.OwnshipPosition
	configs  []storedConfig

	contacts []model.AircraftPosition
	fields   map[string]json.RawMessage
}

func (f *fakeStore) UpdateOwnship(ctx context.Context, own model.OwnshipPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownships = append(f.ownships, own)
	return nil
}

func (f *fakeStore) NearbyAircraft(ctx context.Context, lat, lon float64, altitude int) ([]model.AircraftPosition, error) {
	return f.contacts, nil
}

func (f *fakeStore) SetFleetConfig(ctx context.Context, lat, lon float64, cfg model.FleetConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, storedConfig{lat, lon, cfg})
	return nil
}

func (f *fakeStore) FleetConfigFields(ctx context.Context, gatasID uint32, names ...string) (map[string]json.RawMessage, error) {
	if f.fields == nil {
		return map[string]json.RawMessage{}, nil
	}
	return f.fields, nil
}

type fakeEstimator struct{}

func (fakeEstimator) EllipsoidHeight(p model.AircraftPosition, localQNH float64) int {
	if p.EllipsoidHeight != nil {
		return *p.EllipsoidHeight
	}
	return 1000
}

type fakeQNH struct{}

func (fakeQNH) QNH(ctx context.Context, lat, lon float64) float64 { return model.StandardQNH }

func newTestServer(t *testing.T, st *fakeStore) *Server {
	t.Helper()
	s, err := New(DefaultConfig(), st, fakeEstimator{}, func() QNHLookup { return fakeQNH{} })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func testOwnship() model.OwnshipPosition {
	return model.OwnshipPosition{
		ID:              0xABCDEF,
		Latitude:        52.3,
		Longitude:       4.77,
		EllipsoidHeight: 1000,
	}
}

func contactAt(id uint32, lat, lon float64, onGround bool) model.AircraftPosition {
	h := 1000
	return model.AircraftPosition{
		ID:              id,
		Latitude:        lat,
		Longitude:       lon,
		OnGround:        onGround,
		EllipsoidHeight: &h,
	}
}

// decodeTrafficReply splits a reply into its aircraft frames.
func decodeTrafficReply(t *testing.T, reply []byte) []model.AircraftPosition {
	t.Helper()
	var out []model.AircraftPosition
	for _, frame := range bytes.Split(reply, []byte{wire.FrameDelimiter}) {
		if len(frame) < 2 {
			continue
		}
		payload, err := wire.DecodeCOBS(frame)
		if err != nil {
			t.Fatalf("decode reply frame: %v", err)
		}
		if payload[0] != wire.TagAircraftPositionV1 {
			continue
		}
		p, _, err := wire.DecodeAircraftPositionV1(payload)
		if err != nil {
			t.Fatalf("decode aircraft frame: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func TestBuildReplyFiltersAndSortsTraffic(t *testing.T) {
	st := &fakeStore{contacts: []model.AircraftPosition{
		contactAt(0xAA0001, 52.31, 4.78, false),  // airborne, ~1.3km
		contactAt(0xAA0002, 53.5, 7.0, false),    // airborne, >100km, dropped
		contactAt(0xAA0003, 52.301, 4.771, true), // on ground, ~130m
		contactAt(0xAA0004, 52.39, 4.77, true),   // on ground, ~10km, dropped
	}}
	s := newTestServer(t, st)

	reply := s.buildReply(context.Background(), wire.EncodeOwnshipPositionRequestV1(testOwnship()))
	got := decodeTrafficReply(t, reply)

	if len(got) != 2 {
		t.Fatalf("reply contains %d contacts, want 2", len(got))
	}
	if got[0].ID != 0xAA0003 || got[1].ID != 0xAA0001 {
		t.Errorf("contact order = %06X, %06X; want closest first", got[0].ID, got[1].ID)
	}

	// The position write is asynchronous.
	deadline := time.Now().Add(time.Second)
	for {
		st.mu.Lock()
		n := len(st.ownships)
		st.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ownship position never stored")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBuildReplyCapsContacts(t *testing.T) {
	st := &fakeStore{}
	for i := 0; i < 30; i++ {
		st.contacts = append(st.contacts,
			contactAt(uint32(0xAA0000+i), 52.3+float64(i)*0.001, 4.77, false))
	}
	s := newTestServer(t, st)

	reply := s.buildReply(context.Background(), wire.EncodeOwnshipPositionRequestV1(testOwnship()))
	if got := decodeTrafficReply(t, reply); len(got) != s.cfg.MaxContacts {
		t.Errorf("reply contains %d contacts, want cap %d", len(got), s.cfg.MaxContacts)
	}
}

func TestBuildReplyMalformedFrameIsolated(t *testing.T) {
	st := &fakeStore{contacts: []model.AircraftPosition{contactAt(0xAA0001, 52.31, 4.78, false)}}
	s := newTestServer(t, st)

	// A truncated COBS group followed by a valid request in the same
	// datagram.
	datagram := append([]byte{0xFF, 0x01, wire.FrameDelimiter},
		wire.EncodeOwnshipPositionRequestV1(testOwnship())...)

	reply := s.buildReply(context.Background(), datagram)
	if got := decodeTrafficReply(t, reply); len(got) != 1 {
		t.Errorf("reply contains %d contacts, want 1 despite the bad frame", len(got))
	}
}

func TestBuildReplyFleetConfigAddressSwitch(t *testing.T) {
	cfg := model.FleetConfig{
		GatasID:       77,
		ICAOAddress:   0x483001,
		ICAOAddresses: []uint32{0x483001, 0x483002},
		Version:       3,
		PinCode:       1234,
	}

	tests := []struct {
		name       string
		newAddress uint32
		wantSwitch bool
	}{
		{"pending switch in allowed list", 0x483002, true},
		{"already current", 0x483001, false},
		{"not in allowed list", 0x400000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{fields: map[string]json.RawMessage{
				"newIcaoAddress": json.RawMessage(fmt.Sprintf("%d", tt.newAddress)),
			}}
			s := newTestServer(t, st)

			datagram := append(wire.EncodeOwnshipPositionRequestV1(testOwnship()),
				wire.EncodeFleetConfigV2(cfg)...)
			reply := s.buildReply(context.Background(), datagram)

			if len(st.configs) != 1 {
				t.Fatalf("stored %d configs, want 1", len(st.configs))
			}
			if st.configs[0].lat != 52.3 || st.configs[0].lon != 4.77 {
				t.Errorf("config stored at (%f, %f), want the ownship position",
					st.configs[0].lat, st.configs[0].lon)
			}

			var switchAddr uint32
			sawSwitch := false
			for _, frame := range bytes.Split(reply, []byte{wire.FrameDelimiter}) {
				if len(frame) < 2 {
					continue
				}
				payload, err := wire.DecodeCOBS(frame)
				if err != nil || len(payload) == 0 || payload[0] != wire.TagSetICAOAddressV1 {
					continue
				}
				addr, err := wire.DecodeSetICAOAddressV1(payload)
				if err != nil {
					t.Fatalf("decode switch frame: %v", err)
				}
				sawSwitch, switchAddr = true, addr
			}

			if sawSwitch != tt.wantSwitch {
				t.Fatalf("switch frame present = %v, want %v", sawSwitch, tt.wantSwitch)
			}
			if tt.wantSwitch && switchAddr != tt.newAddress {
				t.Errorf("switch address = %06X, want %06X", switchAddr, tt.newAddress)
			}
		})
	}
}

func TestSenderLimiter(t *testing.T) {
	l, err := newSenderLimiter()
	if err != nil {
		t.Fatalf("newSenderLimiter: %v", err)
	}

	for i := 0; i < senderBurst; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatalf("datagram %d rejected inside the burst budget", i)
		}
	}
	if l.allow("10.0.0.1") {
		t.Error("datagram beyond the burst budget allowed")
	}
	if !l.allow("10.0.0.2") {
		t.Error("an unrelated sender shares the exhausted bucket")
	}
}

// TestSenderLimiterSurvivesCacheChurn verifies that an active sender's
// bucket stays resident while thousands of one-shot senders cycle
// through the cache. A lookup refreshes recency, so eviction only hits
// senders that went quiet.
func TestSenderLimiterSurvivesCacheChurn(t *testing.T) {
	l, err := newSenderLimiter()
	if err != nil {
		t.Fatalf("newSenderLimiter: %v", err)
	}

	for i := 0; i < senderBurst; i++ {
		l.allow("10.0.0.1")
	}
	if l.allow("10.0.0.1") {
		t.Fatal("datagram beyond the burst budget allowed")
	}

	for i := 0; i < 2*senderCacheSize; i++ {
		l.allow(fmt.Sprintf("172.16.%d.%d", (i>>8)&0xFF, i&0xFF))
		if i%256 == 0 {
			l.allow("10.0.0.1")
		}
	}

	if l.allow("10.0.0.1") {
		t.Error("busy sender got a fresh burst after cache churn")
	}
}

func TestServerRepliesWithNoDataSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s, err := New(cfg, &fakeStore{}, fakeEstimator{}, func() QNHLookup { return fakeQNH{} })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	client, err := net.Dial("udp", s.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Write(wire.EncodeOwnshipPositionRequestV1(testOwnship())); err != nil {
		t.Fatalf("Write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf[:n], wire.FallbackNoData) {
		t.Errorf("reply = %x, want the no-data sentinel %x", buf[:n], wire.FallbackNoData)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("server did not shut down after cancellation")
	}
}
