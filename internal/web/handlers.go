package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// Pin codes are four to six digits.
const (
	minPinCode = 1000
	maxPinCode = 999999
)

// pinSearchRadiusMeters bounds how far a pairing request may be from
// the device it claims.
const (
	pinSearchRadiusMeters = 200
	pinSearchLimit        = 32
)

// formatDeviceIP renders the packed device address the way devices
// pack it, low byte first.
func formatDeviceIP(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", v&0xFF, (v>>8)&0xFF, (v>>16)&0xFF, (v>>24)&0xFF)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: write response failed: %v", err)
	}
}

type changeAircraftRequest struct {
	GatasID        uint32 `json:"gatasId"`
	NewICAOAddress uint32 `json:"newIcaoAddress"`
}

// handleChangeAircraft flags a device for an address switch. The
// switch command itself goes out with the device's next configuration
// upload.
func (s *Server) handleChangeAircraft(w http.ResponseWriter, r *http.Request) {
	var req changeAircraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if dev, bound := authorizedDevice(r.Context()); bound && dev != req.GatasID {
		http.Error(w, "token not valid for this device", http.StatusForbidden)
		return
	}

	cfg, found, err := s.store.GetFleetConfig(r.Context(), req.GatasID)
	if err != nil {
		http.Error(w, "datastore unavailable", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, "unknown device", http.StatusNotFound)
		return
	}
	if !cfg.HasAddress(req.NewICAOAddress) {
		http.Error(w, "address not in the device's allowed list", http.StatusBadRequest)
		return
	}

	if err := s.store.SetNewICAOAddress(r.Context(), req.GatasID, req.NewICAOAddress); err != nil {
		http.Error(w, "datastore unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gatasId": req.GatasID, "newIcaoAddress": req.NewICAOAddress})
}

type aircraftConfigResponse struct {
	model.FleetConfig
	DeviceIP string `json:"deviceIp"`
}

func (s *Server) handleAircraftConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "gatasId"), 10, 32)
	if err != nil {
		http.Error(w, "invalid gatasId", http.StatusBadRequest)
		return
	}

	cfg, found, err := s.store.GetFleetConfig(r.Context(), uint32(id))
	if err != nil {
		http.Error(w, "datastore unavailable", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, "unknown device", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, aircraftConfigResponse{
		FleetConfig: cfg,
		DeviceIP:    formatDeviceIP(cfg.GatasIP),
	})
}

type pinCodeRequest struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	PinCode int64   `json:"pinCode"`
}

type pinCodeResponse struct {
	GatasID uint32 `json:"gatasId"`
	Token   string `json:"token,omitempty"`
}

// handlePinCode pairs an admin with a device: the pin must match a
// device whose last known position is within a short walk of the
// caller.
func (s *Server) handlePinCode(w http.ResponseWriter, r *http.Request) {
	var req pinCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PinCode < minPinCode || req.PinCode > maxPinCode {
		http.Error(w, "pin code out of range", http.StatusBadRequest)
		return
	}

	configs, err := s.store.FleetConfigsNearby(r.Context(), req.Lat, req.Lon, pinSearchRadiusMeters, pinSearchLimit)
	if err != nil {
		http.Error(w, "datastore unavailable", http.StatusServiceUnavailable)
		return
	}

	for _, cfg := range configs {
		if cfg.PinCode != req.PinCode {
			continue
		}
		resp := pinCodeResponse{GatasID: cfg.GatasID}
		if s.authSvc != nil {
			token, err := s.authSvc.GenerateDeviceToken(cfg.GatasID)
			if err != nil {
				http.Error(w, "token generation failed", http.StatusInternalServerError)
				return
			}
			resp.Token = token
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	http.Error(w, "no matching device", http.StatusNotFound)
}
