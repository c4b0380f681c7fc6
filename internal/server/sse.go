package server

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"
)

// reloadPrefix is reserved for live reload endpoints when watching.
const reloadPrefix = "/__devserve/"

//go:embed reload.js
var reloadScript []byte

// reloadBroker fans reload signals out to connected SSE clients.
type reloadBroker struct {
	mu        sync.Mutex
	clients   map[chan struct{}]struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newReloadBroker() *reloadBroker {
	return &reloadBroker{
		clients: make(map[chan struct{}]struct{}),
		done:    make(chan struct{}),
	}
}

func (b *reloadBroker) subscribe() chan struct{} {
	// Buffered so a reload that lands mid-write is not lost.
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *reloadBroker) unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
}

func (b *reloadBroker) clientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Broadcast signals every client without blocking on slow ones.
func (b *reloadBroker) Broadcast() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- struct{}{}:
		default:
			// Client already has a pending reload
		}
	}
}

// Close ends every open event stream.
func (b *reloadBroker) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *reloadBroker) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "500 - Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")

	clientChan := b.subscribe()
	defer b.unsubscribe(clientChan)

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-b.done:
			return
		case <-clientChan:
			_, _ = fmt.Fprintf(w, "data: reload\n\n")
			flusher.Flush()
		}
	}
}

func handleReloadScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(reloadScript)
}
