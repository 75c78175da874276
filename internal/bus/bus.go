// Package bus carries change announcements between contexts that share
// durable storage.
//
// The only wire shape is [Message]: {"type":"DB_UPDATE","table":"<name>"}.
// It has no payload, no row id, no originator and no clock; a receiver only
// learns that some table changed and must re-read to find out what.
//
// Two implementations are provided: [Hub] connects contexts inside one
// process, [Dir] connects processes through a shared directory.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// TypeDBUpdate is the only message type.
const TypeDBUpdate = "DB_UPDATE"

// ErrClosed is returned by Announce on a closed bus.
var ErrClosed = errors.New("bus closed")

// Message is the announcement crossing contexts.
type Message struct {
	Type  string `json:"type"`
	Table string `json:"table"`
}

// Update returns the announcement for table.
func Update(table string) Message {
	return Message{Type: TypeDBUpdate, Table: table}
}

// Marshal returns the wire form of m.
func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage decodes a wire message. Messages of another type or without
// a table are rejected.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}
	if m.Type != TypeDBUpdate {
		return Message{}, fmt.Errorf("parse message: unknown type %q", m.Type)
	}
	if m.Table == "" {
		return Message{}, fmt.Errorf("parse message: missing table")
	}
	return m, nil
}

// Handler receives messages announced by other contexts. Handlers run on
// the bus's delivery goroutine, never on the announcer's.
type Handler func(Message)

// Bus broadcasts announcements to every other attached context.
type Bus interface {
	// Announce broadcasts a change of table. The announcing context does
	// not receive its own message.
	Announce(ctx context.Context, table string) error

	// OnReceive registers the inbound path. Several handlers may be
	// registered; each receives every message.
	OnReceive(h Handler)

	Close() error
}

// handlers is a copy-on-read handler list shared by the implementations.
type handlers struct {
	mu   sync.Mutex
	list []Handler
}

func (h *handlers) add(fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list = append(h.list, fn)
}

func (h *handlers) dispatch(m Message) {
	h.mu.Lock()
	list := make([]Handler, len(h.list))
	copy(list, h.list)
	h.mu.Unlock()

	for _, fn := range list {
		fn(m)
	}
}
