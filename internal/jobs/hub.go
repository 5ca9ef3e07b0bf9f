package jobs

import (
	"sync"

	"gopi/domain/core"
	"gopi/internal"
)

// Hub fans job events out to subscribers of that job
type Hub struct {
	mu      sync.RWMutex
	clients map[core.ID]map[chan Event]struct{}
	logger  *internal.Logger
}

// NewHub creates an event hub
func NewHub(logger *internal.Logger) *Hub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Hub{
		clients: make(map[core.ID]map[chan Event]struct{}),
		logger:  logger.WithComponent("jobs-hub"),
	}
}

// Subscribe registers a client for one job's events. The returned function
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(jobID core.ID) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.clients[jobID] == nil {
		h.clients[jobID] = make(map[chan Event]struct{})
	}
	h.clients[jobID][ch] = struct{}{}
	h.logger.Debug("client subscribed to job %s (total clients: %d)", jobID, len(h.clients[jobID]))
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if clients, ok := h.clients[jobID]; ok {
				delete(clients, ch)
				if len(clients) == 0 {
					delete(h.clients, jobID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast sends an event to every subscriber of its job. Subscribers whose
// buffer is full miss the event.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients[event.JobID] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("client channel full for job %s, skipping %s event", event.JobID, event.State)
		}
	}
}

// ClientCount returns the number of subscribers of a job
func (h *Hub) ClientCount(jobID core.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[jobID])
}
