package udpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/gatasproject/gatas-server/pkg/geo"
	"github.com/gatasproject/gatas-server/pkg/model"
	"github.com/gatasproject/gatas-server/pkg/wire"
)

// buildReply processes every frame in a datagram and concatenates the
// reply frames. A malformed frame is logged and skipped, the remaining
// frames still get handled.
func (s *Server) buildReply(ctx context.Context, datagram []byte) []byte {
	var reply []byte
	var position *geo.LatLon

	for _, frame := range bytes.Split(datagram, []byte{wire.FrameDelimiter}) {
		if len(frame) < 2 {
			continue
		}
		payload, err := wire.DecodeCOBS(frame)
		if err != nil {
			log.Printf("udp: frame decode failed: %v", err)
			continue
		}
		if len(payload) == 0 {
			continue
		}

		switch payload[0] {
		case wire.TagOwnshipPositionRequestV1:
			own, err := wire.DecodeOwnshipPositionRequestV1(payload)
			if err != nil {
				log.Printf("udp: ownship request decode failed: %v", err)
				continue
			}
			position = &geo.LatLon{Lat: own.Latitude, Lon: own.Longitude}
			reply = append(reply, s.handleOwnship(ctx, own)...)

		case wire.TagFleetConfigV1, wire.TagFleetConfigV2:
			reply = append(reply, s.handleFleetConfig(ctx, payload, position)...)

		default:
			log.Printf("udp: unknown message tag %d", payload[0])
		}
	}
	return reply
}

// candidate is one traffic contact with its resolved height and the
// distance to the requesting device.
type candidate struct {
	pos      model.AircraftPosition
	height   int
	distance float64
}

// handleOwnship stores the reported position and builds the traffic
// list reply. The position write is fire and forget, a slow store
// write must not eat into the traffic query budget.
func (s *Server) handleOwnship(ctx context.Context, own model.OwnshipPosition) []byte {
	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := s.store.UpdateOwnship(wctx, own); err != nil {
			log.Printf("udp: ownship update for %06X failed: %v", own.ID, err)
		}
	}()

	contacts, err := s.store.NearbyAircraft(ctx, own.Latitude, own.Longitude, own.EllipsoidHeight)
	if err != nil {
		log.Printf("udp: traffic query for %06X failed: %v", own.ID, err)
		return nil
	}

	center := geo.LatLon{Lat: own.Latitude, Lon: own.Longitude}
	qnh := s.newQNH()
	candidates := make([]candidate, 0, len(contacts))
	for _, p := range contacts {
		dist := geo.DistanceFast(center, geo.LatLon{Lat: p.Latitude, Lon: p.Longitude})
		limit := s.cfg.AirborneRadiusMeters
		if p.OnGround {
			limit = s.cfg.GroundRadiusMeters
		}
		if dist >= limit {
			continue
		}
		height := s.estimator.EllipsoidHeight(p, qnh.QNH(ctx, p.Latitude, p.Longitude))
		candidates = append(candidates, candidate{pos: p, height: height, distance: dist})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > s.cfg.MaxContacts {
		candidates = candidates[:s.cfg.MaxContacts]
	}

	var reply []byte
	for _, c := range candidates {
		reply = append(reply, wire.EncodeAircraftPositionV1(c.pos, c.height)...)
	}
	return reply
}

// handleFleetConfig stores an uploaded configuration and checks for a
// pending address switch. The check happens after the write lands so a
// switch requested against this very upload is not missed.
func (s *Server) handleFleetConfig(ctx context.Context, payload []byte, position *geo.LatLon) []byte {
	var cfg model.FleetConfig
	var err error
	if payload[0] == wire.TagFleetConfigV2 {
		cfg, err = wire.DecodeFleetConfigV2(payload)
	} else {
		cfg, err = wire.DecodeFleetConfigV1(payload)
	}
	if err != nil {
		log.Printf("udp: fleet config decode failed: %v", err)
		return nil
	}

	// Config frames carry no position of their own; they ride along
	// with an ownship frame in the same datagram.
	var lat, lon float64
	if position != nil {
		lat, lon = position.Lat, position.Lon
	}
	if err := s.store.SetFleetConfig(ctx, lat, lon, cfg); err != nil {
		log.Printf("udp: fleet config store for %d failed: %v", cfg.GatasID, err)
		return nil
	}

	fields, err := s.store.FleetConfigFields(ctx, cfg.GatasID, "newIcaoAddress")
	if err != nil {
		log.Printf("udp: fleet config readback for %d failed: %v", cfg.GatasID, err)
		return nil
	}
	raw, ok := fields["newIcaoAddress"]
	if !ok {
		return nil
	}
	var newAddr uint32
	if err := json.Unmarshal(raw, &newAddr); err != nil {
		log.Printf("udp: bad newIcaoAddress for %d: %v", cfg.GatasID, err)
		return nil
	}

	if newAddr == cfg.ICAOAddress || !cfg.HasAddress(newAddr) {
		return nil
	}
	log.Printf("udp: switching %d to address %06X", cfg.GatasID, newAddr)
	return wire.EncodeSetICAOAddressV1(newAddr)
}
