package blob

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Several engines may share one Memory to
// model contexts that share durable storage.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	closed bool

	// PutHook, when set, runs before every Put; a non-nil error fails it.
	PutHook func(key, value string) error

	puts int
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.values[key]
	return v, ok, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.PutHook != nil {
		if err := m.PutHook(key, value); err != nil {
			return err
		}
	}
	m.values[key] = value
	m.puts++
	return nil
}

// Puts returns the number of successful Put calls.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
