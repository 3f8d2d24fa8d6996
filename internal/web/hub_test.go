package web

import (
	"testing"
	"time"
)

func TestBroadcastNeverBlocksWithoutDispatcher(t *testing.T) {
	h := NewHub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			h.Broadcast("source_done", "src")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked with no dispatcher running")
	}
}

func TestHubDeliversToSubscribers(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	client := &hubClient{hub: h, send: make(chan ProgressEvent, 4)}
	h.register <- client

	h.Broadcast("source_started", "alpha")

	select {
	case event := <-client.send:
		if event.Type != "source_started" || event.Source != "alpha" {
			t.Errorf("event = %+v", event)
		}
		if event.Time == 0 {
			t.Error("event timestamp missing")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	h.unregister <- client
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after unregister")
	}
}
