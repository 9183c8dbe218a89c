package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatasproject/gatas-server/internal/auth"
	"github.com/gatasproject/gatas-server/pkg/model"
)

type fakeStore struct {
	configs map[uint32]model.FleetConfig
	nearby  []model.FleetConfig

	switched map[uint32]uint32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs:  make(map[uint32]model.FleetConfig),
		switched: make(map[uint32]uint32),
	}
}

func (f *fakeStore) GetFleetConfig(ctx context.Context, gatasID uint32) (model.FleetConfig, bool, error) {
	cfg, ok := f.configs[gatasID]
	return cfg, ok, nil
}

func (f *fakeStore) SetNewICAOAddress(ctx context.Context, gatasID, newAddr uint32) error {
	f.switched[gatasID] = newAddr
	return nil
}

func (f *fakeStore) FleetConfigsNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]model.FleetConfig, error) {
	return f.nearby, nil
}

func testConfig() model.FleetConfig {
	return model.FleetConfig{
		GatasID:       77,
		GatasIP:       0x0102A8C0, // 192.168.2.1 packed low byte first
		ICAOAddress:   0x483001,
		ICAOAddresses: []uint32{0x483001, 0x483002},
		Version:       3,
		PinCode:       4321,
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestFormatDeviceIP(t *testing.T) {
	tests := []struct {
		packed uint32
		want   string
	}{
		{0x0102A8C0, "192.168.2.1"},
		{0x0100007F, "127.0.0.1"},
		{0, "0.0.0.0"},
		{0xFFFFFFFF, "255.255.255.255"},
	}
	for _, tt := range tests {
		if got := formatDeviceIP(tt.packed); got != tt.want {
			t.Errorf("formatDeviceIP(%#x) = %q, want %q", tt.packed, got, tt.want)
		}
	}
}

func TestAircraftConfiguration(t *testing.T) {
	st := newFakeStore()
	st.configs[77] = testConfig()
	s := New(DefaultConfig(), st, nil)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/config/aircraftConfiguration/77", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp aircraftConfigResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.GatasID != 77 || resp.DeviceIP != "192.168.2.1" {
			t.Errorf("response = %+v, want gatasId 77 with deviceIp 192.168.2.1", resp)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/config/aircraftConfiguration/404", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/config/aircraftConfiguration/abc", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestChangeAircraftOpenMode(t *testing.T) {
	tests := []struct {
		name       string
		req        changeAircraftRequest
		wantStatus int
		wantSwitch bool
	}{
		{"allowed address", changeAircraftRequest{GatasID: 77, NewICAOAddress: 0x483002}, http.StatusOK, true},
		{"address outside list", changeAircraftRequest{GatasID: 77, NewICAOAddress: 0x400000}, http.StatusBadRequest, false},
		{"unknown device", changeAircraftRequest{GatasID: 404, NewICAOAddress: 0x483002}, http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			st.configs[77] = testConfig()
			s := New(DefaultConfig(), st, nil)

			rec := postJSON(t, s.Handler(), "/api/config/changeAircraft", tt.req, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if _, ok := st.switched[77]; ok != tt.wantSwitch {
				t.Errorf("switch recorded = %v, want %v", ok, tt.wantSwitch)
			}
		})
	}
}

func TestChangeAircraftRequiresToken(t *testing.T) {
	st := newFakeStore()
	st.configs[77] = testConfig()
	st.configs[78] = model.FleetConfig{GatasID: 78, ICAOAddresses: []uint32{0x483002}}
	authSvc := auth.NewService(auth.Config{Secret: "test-secret", TokenDuration: time.Minute})
	s := New(DefaultConfig(), st, authSvc)

	body := changeAircraftRequest{GatasID: 77, NewICAOAddress: 0x483002}

	t.Run("missing token", func(t *testing.T) {
		rec := postJSON(t, s.Handler(), "/api/config/changeAircraft", body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("token for another device", func(t *testing.T) {
		token, err := authSvc.GenerateDeviceToken(78)
		if err != nil {
			t.Fatalf("GenerateDeviceToken: %v", err)
		}
		header := http.Header{"Authorization": []string{"Bearer " + token}}
		rec := postJSON(t, s.Handler(), "/api/config/changeAircraft", body, header)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := authSvc.GenerateDeviceToken(77)
		if err != nil {
			t.Fatalf("GenerateDeviceToken: %v", err)
		}
		header := http.Header{"Authorization": []string{"Bearer " + token}}
		rec := postJSON(t, s.Handler(), "/api/config/changeAircraft", body, header)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if st.switched[77] != 0x483002 {
			t.Errorf("switched to %06X, want 483002", st.switched[77])
		}
	})
}

func TestPinCode(t *testing.T) {
	authSvc := auth.NewService(auth.Config{Secret: "test-secret", TokenDuration: time.Minute})

	t.Run("match issues token", func(t *testing.T) {
		st := newFakeStore()
		st.nearby = []model.FleetConfig{testConfig()}
		s := New(DefaultConfig(), st, authSvc)

		rec := postJSON(t, s.Handler(), "/api/config/pinCode",
			pinCodeRequest{Lat: 52.3, Lon: 4.77, PinCode: 4321}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp pinCodeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.GatasID != 77 || resp.Token == "" {
			t.Errorf("response = %+v, want gatasId 77 with a token", resp)
		}

		claims, err := authSvc.ValidateToken(resp.Token)
		if err != nil {
			t.Fatalf("ValidateToken: %v", err)
		}
		if claims.GatasID != 77 {
			t.Errorf("token bound to %d, want 77", claims.GatasID)
		}
	})

	t.Run("wrong pin", func(t *testing.T) {
		st := newFakeStore()
		st.nearby = []model.FleetConfig{testConfig()}
		s := New(DefaultConfig(), st, authSvc)

		rec := postJSON(t, s.Handler(), "/api/config/pinCode",
			pinCodeRequest{Lat: 52.3, Lon: 4.77, PinCode: 9999}, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("pin out of range", func(t *testing.T) {
		s := New(DefaultConfig(), newFakeStore(), authSvc)
		for _, pin := range []int64{0, 999, 1000000} {
			rec := postJSON(t, s.Handler(), "/api/config/pinCode",
				pinCodeRequest{Lat: 52.3, Lon: 4.77, PinCode: pin}, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("pin %d: status = %d, want 400", pin, rec.Code)
			}
		}
	})
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0.5 // burst of 1
	s := New(cfg, newFakeStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/config/aircraftConfiguration/1", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code == http.StatusTooManyRequests {
		t.Fatal("first request already limited")
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 once the burst is spent", rec.Code)
	}
}
