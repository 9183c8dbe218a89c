package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// Weather lookup bounds: the nearest handful of stations within 200km.
const (
	metarSearchRadiusMeters = 200000
	metarSearchLimit        = 5
)

// AddMetar stores an observation under its station id. The entry ages
// out after an hour, well past the next scheduled refresh.
func (c *Client) AddMetar(ctx context.Context, m model.MetarInfo) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metar: %w", err)
	}

	_, err = c.doWrite(ctx, "SET", metarByStationKey, m.StationID,
		"FIELD", "qnh", m.QNH,
		"FIELD", "json", string(doc),
		"EX", metarByStationTTL,
		"POINT", m.Latitude, m.Longitude)
	return err
}

// AddMetarByH3 caches an observation under an H3 cell, so repeated
// pressure lookups in the same area skip the station search. The short
// TTL keeps cells from serving stale pressure.
func (c *Client) AddMetarByH3(ctx context.Context, cell int64, m model.MetarInfo) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metar: %w", err)
	}

	_, err = c.doWrite(ctx, "SET", metarByH3Key, strconv.FormatInt(cell, 10),
		"FIELD", "qnh", m.QNH,
		"FIELD", "json", string(doc),
		"EX", metarByH3TTL,
		"POINT", m.Latitude, m.Longitude)
	return err
}

// MetarByH3 returns the cached observation for an H3 cell. found is
// false on a cache miss.
func (c *Client) MetarByH3(ctx context.Context, cell int64) (model.MetarInfo, bool, error) {
	raw, err := c.doRead(ctx, "GET", metarByH3Key, strconv.FormatInt(cell, 10), "WITHFIELDS")
	if err != nil {
		if errors.Is(err, errNotFound) {
			return model.MetarInfo{}, false, nil
		}
		return model.MetarInfo{}, false, err
	}

	reply, err := parseGetReply(raw)
	if err != nil {
		return model.MetarInfo{}, false, err
	}
	doc, ok := reply.Fields["json"]
	if !ok {
		return model.MetarInfo{}, false, nil
	}

	var m model.MetarInfo
	if err := decodeJSONField(doc, &m); err != nil {
		return model.MetarInfo{}, false, err
	}
	return m, true, nil
}

// NearbyMetars returns the closest stations to a position, nearest
// first as Tile38 orders NEARBY results by distance.
func (c *Client) NearbyMetars(ctx context.Context, lat, lon float64) ([]model.MetarInfo, error) {
	raw, err := c.doRead(ctx, "NEARBY", metarByStationKey,
		"LIMIT", metarSearchLimit,
		"POINT", lat, lon, metarSearchRadiusMeters)
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

	out := make([]model.MetarInfo, 0, len(reply.Objects))
	err = decodeObjects(reply, "json", func(raw json.RawMessage) error {
		var m model.MetarInfo
		if err := decodeJSONField(raw, &m); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
