package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// resourceTag marks entries written by this server.
const resourceTag = "gatas"

// UpdateOwnship records a device position in the fleet collection. The
// entry ages out after the fleet TTL, so the fleet scan only ever sees
// recently active devices.
func (c *Client) UpdateOwnship(ctx context.Context, own model.OwnshipPosition) error {
	doc, err := json.Marshal(own)
	if err != nil {
		return fmt.Errorf("marshal ownship: %w", err)
	}

	_, err = c.doWrite(ctx, "SET", fleetKey, strconv.FormatUint(uint64(own.ID), 10),
		"FIELD", "h3", H3Cell(own.Latitude, own.Longitude),
		"FIELD", "rsc", resourceTag,
		"FIELD", "json", string(doc),
		"EX", fleetTTL,
		"POINT", own.Latitude, own.Longitude, own.EllipsoidHeight)
	return err
}

// ScanFleet returns the currently active fleet positions, at most limit
// entries.
func (c *Client) ScanFleet(ctx context.Context, limit int) ([]model.OwnshipPosition, error) {
	raw, err := c.doRead(ctx, "SCAN", fleetKey, "LIMIT", limit)
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

	out := make([]model.OwnshipPosition, 0, len(reply.Objects))
	err = decodeObjects(reply, "json", func(raw json.RawMessage) error {
		var o model.OwnshipPosition
		if err := decodeJSONField(raw, &o); err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetFleetConfig stores a device configuration at the device's last
// reported position. Configuration entries never expire, the pin-code
// pairing flow depends on them staying around.
func (c *Client) SetFleetConfig(ctx context.Context, lat, lon float64, cfg model.FleetConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal fleet config: %w", err)
	}

	addrs := make([]string, len(cfg.ICAOAddresses))
	for i, a := range cfg.ICAOAddresses {
		addrs[i] = strconv.FormatUint(uint64(a), 10)
	}

	_, err = c.doWrite(ctx, "SET", fleetConfigKey, strconv.FormatUint(uint64(cfg.GatasID), 10),
		"FIELD", "uniqueId", cfg.GatasID,
		"FIELD", "gatasIp", cfg.GatasIP,
		"FIELD", "icaoAddress", cfg.ICAOAddress,
		"FIELD", "icaoAddressList", strings.Join(addrs, ","),
		"FIELD", "options", cfg.Options,
		"FIELD", "pinCode", cfg.PinCode,
		"FIELD", "version", cfg.Version,
		"FIELD", "rsc", resourceTag,
		"FIELD", "json", string(doc),
		"POINT", lat, lon)
	return err
}

// FleetConfigFields reads the named fields of one device configuration.
// A missing device or key yields an empty map, not an error.
func (c *Client) FleetConfigFields(ctx context.Context, gatasID uint32, names ...string) (map[string]json.RawMessage, error) {
	raw, err := c.doRead(ctx, "GET", fleetConfigKey,
		strconv.FormatUint(uint64(gatasID), 10), "WITHFIELDS")
	if err != nil {
		if errors.Is(err, errNotFound) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}

	reply, err := parseGetReply(raw)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return reply.Fields, nil
	}

	out := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		if v, ok := reply.Fields[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// GetFleetConfig returns one device configuration document. found is
// false when the device is unknown.
func (c *Client) GetFleetConfig(ctx context.Context, gatasID uint32) (model.FleetConfig, bool, error) {
	raw, err := c.doRead(ctx, "GET", fleetConfigKey,
		strconv.FormatUint(uint64(gatasID), 10), "WITHFIELDS")
	if err != nil {
		if errors.Is(err, errNotFound) {
			return model.FleetConfig{}, false, nil
		}
		return model.FleetConfig{}, false, err
	}

	reply, err := parseGetReply(raw)
	if err != nil {
		return model.FleetConfig{}, false, err
	}
	doc, ok := reply.Fields["json"]
	if !ok {
		return model.FleetConfig{}, false, nil
	}

	var cfg model.FleetConfig
	if err := decodeJSONField(doc, &cfg); err != nil {
		return model.FleetConfig{}, false, err
	}
	return cfg, true, nil
}

// SetNewICAOAddress stages an address change for a device. The change
// is picked up and pushed to the device on its next request.
func (c *Client) SetNewICAOAddress(ctx context.Context, gatasID, newAddr uint32) error {
	_, err := c.doWrite(ctx, "FSET", fleetConfigKey,
		strconv.FormatUint(uint64(gatasID), 10), "newIcaoAddress", newAddr)
	return err
}

// FleetConfigsNearby returns the device configurations stored within
// radiusMeters of the given position.
func (c *Client) FleetConfigsNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]model.FleetConfig, error) {
	raw, err := c.doRead(ctx, "NEARBY", fleetConfigKey,
		"LIMIT", limit,
		"POINT", lat, lon, radiusMeters)
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

	out := make([]model.FleetConfig, 0, len(reply.Objects))
	err = decodeObjects(reply, "json", func(raw json.RawMessage) error {
		var cfg model.FleetConfig
		if err := decodeJSONField(raw, &cfg); err != nil {
			return err
		}
		out = append(out, cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
