// Package sse implements a Server-Sent Events broker that pushes card and
// sync updates to dashboard clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/wikifeed/internal/models"
)

// Event types sent to clients.
const (
	TypeCardCreated   = "card.created"
	TypeCardUpdated   = "card.updated"
	TypeCardDeleted   = "card.deleted"
	TypeFeedUpdated   = "feed.updated"
	TypeSyncCompleted = "sync.completed"
)

// cardTypes maps a page change kind to the event type announcing it.
var cardTypes = map[string]string{
	"created": TypeCardCreated,
	"updated": TypeCardUpdated,
	"deleted": TypeCardDeleted,
}

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type cardChange struct {
	kind     string
	filename string
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets how often idle streams receive a comment line so
// proxies keep the connection open. Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// WithRetry sets the reconnect delay advertised to clients on connect.
func WithRetry(d time.Duration) Option {
	return func(b *Broker) { b.retry = d }
}

// Broker fans events out to connected clients.
//
// The run loop owns the client set, the event sequence and the feed
// throttle timestamp. Everything else reaches it over channels.
type Broker struct {
	feedMin   time.Duration
	keepAlive time.Duration
	retry     time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan cardChange
	count   chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits feed.updated at most once per
// feedThrottle, however many cards change in between.
func NewBroker(feedThrottle time.Duration, opts ...Option) *Broker {
	if feedThrottle <= 0 {
		feedThrottle = 2 * time.Second
	}

	b := &Broker{
		feedMin:   feedThrottle,
		keepAlive: 30 * time.Second,
		retry:     3 * time.Second,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		events:    make(chan Event, 256),
		changes:   make(chan cardChange, 256),
		count:     make(chan chan int),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq      uint64
		lastFeed time.Time
	)

	send := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch := range clients {
			select {
			case ch <- frame:
			default:
				// buffer full, this client misses the event
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

		case ch := <-b.join:
			clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.events:
			send(event)

		case c := <-b.changes:
			typ, ok := cardTypes[c.kind]
			if !ok {
				continue
			}
			send(Event{Type: typ, Data: map[string]string{"filename": c.filename}})

			if now := time.Now(); now.Sub(lastFeed) >= b.feedMin {
				lastFeed = now
				send(Event{Type: TypeFeedUpdated, Data: map[string]string{}})
			}

		case resp := <-b.count:
			resp <- len(clients)
		}
	}
}

// Close stops the run loop and closes every client channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.join <- ch:
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
	case b.leave <- ch:
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
	case b.count <- resp:
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
	case b.events <- event:
	case <-b.stopped:
	}
}

// PublishCardEvent announces a changed page card plus a throttled
// feed.updated. kind is "created", "updated" or "deleted"; anything else is
// ignored.
func (b *Broker) PublishCardEvent(kind, filename string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- cardChange{kind: kind, filename: filename}:
	case <-b.stopped:
	}
}

// PublishSyncEvent announces a finished repository sync.
func (b *Broker) PublishSyncEvent(res models.SyncResult) {
	b.Publish(Event{Type: TypeSyncCompleted, Data: res})
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if b.retry > 0 {
		_, _ = fmt.Fprintf(w, "retry: %d\n\n", b.retry.Milliseconds())
	}
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var ping <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		ping = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping:
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
