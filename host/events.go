package host

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"tether/internal/relay"
)

// eventHub fans status snapshots out to local UI surfaces over SSE. Slow
// consumers get dropped updates, never a blocked publisher.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan relay.Snapshot]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan relay.Snapshot]struct{})}
}

func (h *eventHub) Publish(s relay.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- s:
		default: // consumer is behind; it will catch up on the next update
		}
	}
}

func (h *eventHub) subscribe() (chan relay.Snapshot, func()) {
	ch := make(chan relay.Snapshot, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *eventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

// ServeHTTP streams snapshots as server-sent events.
func (h *eventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
