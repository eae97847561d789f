package broadcast

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hashmato/pos/internal/config"
)

// Hub is the live subscriber registry: the set of currently connected queue
// viewers, each fed every snapshot published after it subscribed. There is no
// history or backfill; a new viewer fetches current state through GET /queue.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub constructs the process-wide fan-out registry. It is built once at
// startup and handed to every connection handler by reference.
func NewHub(cfg config.Config, logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: cfg.Broadcast.BufferSize,
		logger: logger,
	}
}

// Subscription is one viewer's feed. Close deregisters it; afterwards the
// message channel is closed and receives nothing further.
type Subscription struct {
	hub *Hub
	ch  chan []byte
}

// Subscribe registers a new viewer and returns its feed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub: h,
		ch:  make(chan []byte, h.buffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("queue viewer subscribed", zap.Int("subscribers", count))
	return sub
}

// Publish delivers the payload to every current subscriber without blocking.
// A subscriber whose buffer is full loses its oldest pending snapshot, so one
// stalled viewer can never stall publishers or other viewers.
func (h *Hub) Publish(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		for {
			select {
			case sub.ch <- payload:
			default:
				// Buffer full: evict the oldest pending snapshot and retry.
				// The retry always terminates because Publish is the only
				// sender and it runs under the hub lock.
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Subscribers reports the number of currently registered viewers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Messages exposes the subscriber's feed. The channel is closed by Close.
func (s *Subscription) Messages() <-chan []byte {
	return s.ch
}

// Close deregisters the subscription and closes its feed. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if _, ok := s.hub.subs[s]; !ok {
		return
	}
	delete(s.hub.subs, s)
	close(s.ch)
}
