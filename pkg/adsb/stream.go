package adsb

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// StreamSource consumes a readsb-style aircraft feed over a websocket
// and pushes every received batch into a result channel. It runs next
// to the polling providers for feeds that push rather than answer
// radius queries.
type StreamSource struct {
	name           string
	url            string
	header         http.Header
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
}

// NewStreamSource creates a stream source for the given websocket URL.
// header may carry authentication and is sent with the handshake.
func NewStreamSource(name, url string, header http.Header, reconnectDelay time.Duration) *StreamSource {
	return &StreamSource{
		name:           name,
		url:            url,
		header:         header,
		reconnectDelay: reconnectDelay,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Name identifies the source in logs and fetch results.
func (s *StreamSource) Name() string { return s.name }

// Run connects to the feed and forwards batches onto out until the
// context is cancelled. Connection failures trigger a reconnect after
// the configured delay.
func (s *StreamSource) Run(ctx context.Context, out chan<- model.FetchResult) error {
	for {
		if err := s.readConnection(ctx, out); err != nil && ctx.Err() == nil {
			log.Printf("stream %s: connection lost: %v", s.name, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *StreamSource) readConnection(ctx context.Context, out chan<- model.FetchResult) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var batch readsbResponse
		if err := json.Unmarshal(data, &batch); err != nil {
			log.Printf("stream %s: bad message: %v", s.name, err)
			continue
		}

		result := model.FetchResult{
			Source:    s.name,
			Status:    model.FetchSuccess,
			Positions: convertReadsbResponse(batch),
		}
		select {
		case out <- result:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
