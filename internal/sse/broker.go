// Package sse implements the Server-Sent Events broker behind live reload.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types published by the broker.
const (
	EventSourceCreated = "source.created"
	EventSourceUpdated = "source.updated"
	EventSourceDeleted = "source.deleted"
	EventSiteStale     = "site.stale"
	EventSiteRebuilt   = "site.rebuilt"
)

// Defaults for a Broker.
const (
	DefaultHeartbeat  = 25 * time.Second
	DefaultReplay     = 32
	clientBuffer      = 64
	reconnectDelayMS  = 2000
	sourceEventBuffer = 256
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type sourceEventReq struct {
	kind string
	path string
}

type subscribeReq struct {
	ch     chan []byte
	lastID uint64
}

// frame is one encoded event kept for replay.
type frame struct {
	id  uint64
	raw []byte
}

// Broker manages SSE client connections and broadcasts events.
//
// A single loop goroutine owns the client set, the event sequence, the replay
// ring and the stale throttle. Public methods talk to it over channels.
//
// Every event carries an id. A client reconnecting with Last-Event-ID gets the
// events it missed, as long as they are still in the replay ring, so a
// site.rebuilt sent while a page was reconnecting is not lost.
type Broker struct {
	staleMin  time.Duration
	heartbeat time.Duration
	replay    int

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	sourceEventCh chan sourceEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the interval of keep-alive comments on open streams.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithReplay sets how many recent events are kept for reconnecting clients.
func WithReplay(n int) Option {
	return func(b *Broker) { b.replay = n }
}

// NewBroker creates a new SSE broker. site.stale hints are sent at most once
// per staleThrottle.
func NewBroker(staleThrottle time.Duration, opts ...Option) *Broker {
	if staleThrottle <= 0 {
		staleThrottle = 2 * time.Second
	}

	b := &Broker{
		staleMin:      staleThrottle,
		heartbeat:     DefaultHeartbeat,
		replay:        DefaultReplay,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, sourceEventBuffer),
		sourceEventCh: make(chan sourceEventReq, sourceEventBuffer),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.replay > clientBuffer {
		b.replay = clientBuffer
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	ring := make([]frame, 0, b.replay)
	var (
		seq       uint64
		lastStale time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		if b.replay > 0 {
			if len(ring) == b.replay {
				ring = append(ring[:0], ring[1:]...)
			}
			ring = append(ring, frame{id: seq, raw: raw})
		}

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; dropping keeps the loop responsive.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.ch] = struct{}{}
			if req.lastID == 0 {
				continue
			}
			for _, f := range ring {
				if f.id > req.lastID {
					req.ch <- f.raw // ring never exceeds the client buffer
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.sourceEventCh:
			data := map[string]string{"path": req.path}
			switch req.kind {
			case "created":
				broadcast(Event{Type: EventSourceCreated, Data: data})
			case "updated":
				broadcast(Event{Type: EventSourceUpdated, Data: data})
			case "deleted":
				broadcast(Event{Type: EventSourceDeleted, Data: data})
			}

			if now := time.Now(); now.Sub(lastStale) >= b.staleMin {
				lastStale = now
				broadcast(Event{Type: EventSiteStale, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel, which ends the open
// streams.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom(0)
}

// SubscribeFrom adds a client that first receives the retained events newer
// than lastID. A zero lastID replays nothing.
func (b *Broker) SubscribeFrom(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, lastID: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishSourceEvent publishes a source change and a throttled site.stale event.
// kind is one of "created", "updated", "deleted".
func (b *Broker) PublishSourceEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.sourceEventCh <- sourceEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// PublishRebuilt announces a finished rebuild; served pages reload on it.
func (b *Broker) PublishRebuilt(data any) {
	b.Publish(Event{Type: EventSiteRebuilt, Data: data})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", reconnectDelayMS)
	flusher.Flush()

	ch := b.SubscribeFrom(lastID)
	defer b.Unsubscribe(ch)

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		beat = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-beat:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
