package observer

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"nations.ai/internal/protocol"
)

// Hub fans search events out to websocket subscribers. OnEvent never blocks:
// a subscriber whose queue is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool

	dropped atomic.Uint64
}

type subscriber struct {
	out   chan []byte
	types map[string]bool
}

func NewHub() *Hub {
	return &Hub{subs: map[uint64]*subscriber{}}
}

// Subscribe registers a queue of the given size. An empty types list means
// every event type. The returned channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe(types []string, queue int) (uint64, <-chan []byte, bool) {
	if queue <= 0 {
		queue = 256
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	sub := &subscriber{out: make(chan []byte, queue)}
	if len(types) > 0 {
		sub.types = map[string]bool{}
		for _, t := range types {
			sub.types[t] = true
		}
	}
	h.nextID++
	h.subs[h.nextID] = sub
	return h.nextID, sub.out, true
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.out)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped counts frames not delivered to slow subscribers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) OnEvent(ev protocol.SearchEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.subs) == 0 {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	for _, sub := range h.subs {
		if sub.types != nil && !sub.types[ev.Type] {
			continue
		}
		select {
		case sub.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

// Close ends every subscription. Later events are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.out)
	}
}
