package chart

import "sync"

const subscriberBuffer = 4

// Hub is the frame sink shared by the dashboard's websocket clients. It
// retains the last published frame so a newly connected client renders
// immediately instead of waiting for the next tick.
type Hub struct {
	mu   sync.RWMutex
	last *Frame
	subs map[chan Frame]struct{}
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Frame]struct{})}
}

// Publish stores the frame and fans it out. Slow subscribers miss frames
// rather than blocking the render path.
func (h *Hub) Publish(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &f
	for ch := range h.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

// Last returns the most recently published frame.
func (h *Hub) Last() (Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return Frame{}, false
	}
	return *h.last, true
}

// Subscribe registers a listener; the returned cancel func must be called
// when the client disconnects.
func (h *Hub) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}
