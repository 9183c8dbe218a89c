package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// Traffic query bounds: contacts within a 100km circle and 1000m of
// altitude, at most 64 results per lookup.
const (
	nearbyRadiusMeters  = 100000
	altitudeBandMeters  = 1000
	nearbyAircraftLimit = 64
)

// storeAltitude is the altitude written next to a contact: zero on the
// ground, the best known height otherwise, -999 when nothing is known
// so the record still lands in the store for analysis.
func storeAltitude(p model.AircraftPosition) int {
	switch {
	case p.OnGround:
		return 0
	case p.EllipsoidHeight != nil:
		return *p.EllipsoidHeight
	case p.BaroAltitude != nil:
		return *p.BaroAltitude
	default:
		return -999
	}
}

// StoreAircraft writes a batch of contacts. Each entry carries its
// altitude and H3 cell as queryable fields plus the full document, and
// ages out after the aircraft TTL. A bad record does not stop the rest
// of the batch.
func (c *Client) StoreAircraft(ctx context.Context, positions []model.AircraftPosition) error {
	var errs []error
	for _, p := range positions {
		if err := c.storeOne(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("aircraft %d: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) storeOne(ctx context.Context, p model.AircraftPosition) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	alt := storeAltitude(p)
	gnd := 0
	if p.OnGround {
		gnd = 1
	}

	_, err = c.doWrite(ctx, "SET", aircraftKey, strconv.FormatUint(uint64(p.ID), 10),
		"FIELD", "alti", alt,
		"FIELD", "h3", H3Cell(p.Latitude, p.Longitude),
		"FIELD", "gnd", gnd,
		"FIELD", "json", string(doc),
		"EX", aircraftTTL,
		"POINT", p.Latitude, p.Longitude, alt)
	return err
}

// NearbyAircraft returns contacts around the given position whose
// stored altitude is within the altitude band. The requesting aircraft
// itself is not filtered here, callers drop it by id if needed.
func (c *Client) NearbyAircraft(ctx context.Context, lat, lon float64, altitude int) ([]model.AircraftPosition, error) {
	raw, err := c.doRead(ctx, "NEARBY", aircraftKey,
		"WHERE", "alti", altitude-altitudeBandMeters, altitude+altitudeBandMeters,
		"LIMIT", nearbyAircraftLimit,
		"POINT", lat, lon, nearbyRadiusMeters)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	reply, err := parseScanReply(raw)
	if err != nil {
		return nil, err
	}

	out := make([]model.AircraftPosition, 0, len(reply.Objects))
	err = decodeObjects(reply, "json", func(raw json.RawMessage) error {
		var p model.AircraftPosition
		if err := decodeJSONField(raw, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
