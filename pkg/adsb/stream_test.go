package adsb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gatasproject/gatas-server/pkg/model"
)

func TestStreamSourceForwardsBatches(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade() error: %v", err)
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(sampleResponse)); err != nil {
			return
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	src := NewStreamSource("test-feed", wsURL, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan model.FetchResult, 1)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, out) }()

	select {
	case res := <-out:
		if res.Source != "test-feed" {
			t.Errorf("Source = %q, want test-feed", res.Source)
		}
		if res.Status != model.FetchSuccess {
			t.Errorf("Status = %v, want FetchSuccess", res.Status)
		}
		if len(res.Positions) != 2 {
			t.Errorf("got %d positions, want 2", len(res.Positions))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch received from stream source")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop on context cancellation")
	}
}

func TestStreamSourceReconnects(t *testing.T) {
	connects := make(chan struct{}, 8)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connects <- struct{}{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close() // drop immediately, client should come back
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	src := NewStreamSource("test-feed", wsURL, nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan model.FetchResult, 1)
	go src.Run(ctx, out)

	for i := 0; i < 2; i++ {
		select {
		case <-connects:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d connects, want at least 2", i)
		}
	}
}
