package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// errNotFound marks a key or id miss. Callers translate it into an
// empty result instead of failing the request.
var errNotFound = errors.New("store: not found")

// envelope is the common part of every Tile38 JSON reply.
type envelope struct {
	OK  bool   `json:"ok"`
	Err string `json:"err"`
}

// scanReply is the shape of NEARBY and SCAN replies: the field name
// list at the top, per-object field values as a parallel array.
type scanReply struct {
	envelope
	Fields  []string     `json:"fields"`
	Objects []scanObject `json:"objects"`
	Count   int          `json:"count"`
	Cursor  int          `json:"cursor"`
}

type scanObject struct {
	ID     string            `json:"id"`
	Object json.RawMessage   `json:"object"`
	Fields []json.RawMessage `json:"fields"`
}

// getReply is the shape of GET ... WITHFIELDS replies.
type getReply struct {
	envelope
	Object json.RawMessage            `json:"object"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// decodeJSONField decodes a field value that holds a serialized
// document. Depending on the Tile38 version the value arrives either as
// the document itself or as a JSON string containing it.
func decodeJSONField(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty json field")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		return json.Unmarshal([]byte(s), out)
	}
	return json.Unmarshal(raw, out)
}

// fieldIndex returns the position of name in the reply's field list,
// or -1 when the field was never set on any returned object.
func (r *scanReply) fieldIndex(name string) int {
	for i, f := range r.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// decodeObjects decodes the named document field of every object in the
// reply into items produced by newItem, skipping objects without it.
func decodeObjects(reply *scanReply, field string, decode func(raw json.RawMessage) error) error {
	idx := reply.fieldIndex(field)
	if idx < 0 {
		return nil
	}
	for _, obj := range reply.Objects {
		if idx >= len(obj.Fields) {
			continue
		}
		if err := decode(obj.Fields[idx]); err != nil {
			return fmt.Errorf("object %s: %w", obj.ID, err)
		}
	}
	return nil
}

func parseScanReply(raw []byte) (*scanReply, error) {
	var reply scanReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("parse scan reply: %w", err)
	}
	return &reply, nil
}

func parseGetReply(raw []byte) (*getReply, error) {
	var reply getReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("parse get reply: %w", err)
	}
	return &reply, nil
}
