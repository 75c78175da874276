package bus

import (
	"context"
	"sync"
)

// Hub connects several contexts inside one process. Each context attaches
// an [Endpoint]; an announcement on one endpoint is delivered
// asynchronously to every other endpoint.
type Hub struct {
	mu        sync.RWMutex
	endpoints map[*Endpoint]struct{}
}

// NewHub returns a hub with no endpoints.
func NewHub() *Hub {
	return &Hub{endpoints: make(map[*Endpoint]struct{})}
}

// Attach adds a new endpoint. Its delivery goroutine runs until Close.
func (h *Hub) Attach() *Endpoint {
	ep := &Endpoint{
		hub:   h,
		queue: newMessageQueue(),
		done:  make(chan struct{}),
	}
	h.mu.Lock()
	h.endpoints[ep] = struct{}{}
	h.mu.Unlock()

	go ep.deliver()
	return ep
}

// Len returns the number of attached endpoints.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.endpoints)
}

func (h *Hub) detach(ep *Endpoint) {
	h.mu.Lock()
	delete(h.endpoints, ep)
	h.mu.Unlock()
}

func (h *Hub) broadcast(from *Endpoint, m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ep := range h.endpoints {
		if ep == from {
			continue
		}
		ep.queue.Enqueue(m)
	}
}

// Endpoint is one context's attachment to a Hub. It implements [Bus].
type Endpoint struct {
	hub      *Hub
	queue    *messageQueue
	handlers handlers
	done     chan struct{}

	closeOnce sync.Once
}

var _ Bus = (*Endpoint)(nil)

// Announce implements Bus.
func (e *Endpoint) Announce(ctx context.Context, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	e.hub.broadcast(e, Update(table))
	return nil
}

// OnReceive implements Bus.
func (e *Endpoint) OnReceive(h Handler) {
	e.handlers.add(h)
}

// Close detaches the endpoint. Messages still queued are dropped.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.hub.detach(e)
		close(e.done)
		e.queue.Close()
	})
	return nil
}

func (e *Endpoint) deliver() {
	for {
		if m, ok := e.queue.TryDequeue(); ok {
			select {
			case <-e.done:
				return
			default:
			}
			e.handlers.dispatch(m)
			continue
		}

		select {
		case <-e.done:
			return
		case <-e.queue.Wait():
		}
	}
}
