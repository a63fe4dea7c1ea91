// Package persistence defines the durable storage port for the memory store.
//
// Persistence is advisory: the in-memory store is the source of truth and
// write failures are logged and swallowed by the caller, never propagated
// to the decision path. Backends implement a small key-value contract:
// Put (upsert), GetAll (warm start), Delete, Close.
package persistence

import (
	"context"
	"time"
)

// Record is a serialized memory entry as stored by a backend.
//
// The Payload is the JSON encoding of the full entry; the remaining
// columns are denormalized for indexing and inspection only.
type Record struct {
	// ID is the memory entry ID (primary key).
	ID string

	// MemoryType is the entry's tier at the time of the write.
	MemoryType string

	// AgentID is the owning agent.
	AgentID string

	// Payload is the JSON encoding of the full entry.
	Payload []byte

	// Strength is the entry's retention strength at the time of the write.
	Strength float64

	// CreatedAt is when the entry was created.
	CreatedAt time.Time
}

// Store defines the interface for durable memory backends.
//
// All backends (SQLite, PostgreSQL, MySQL) must implement this interface.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put inserts or replaces a record by ID.
	Put(ctx context.Context, record *Record) error

	// GetAll retrieves every stored record, for warm start.
	GetAll(ctx context.Context) ([]*Record, error)

	// Delete removes a record by ID. Deleting an unknown ID is a no-op.
	Delete(ctx context.Context, id string) error

	// Close closes the backend and releases resources.
	Close() error
}

// Noop is the default in-memory-only backend: every operation succeeds
// and nothing is stored. It keeps the core store fully testable without
// any external dependency.
type Noop struct{}

// NewNoop creates a no-op backend.
func NewNoop() *Noop { return &Noop{} }

// Put discards the record.
func (n *Noop) Put(ctx context.Context, record *Record) error { return nil }

// GetAll returns no records.
func (n *Noop) GetAll(ctx context.Context) ([]*Record, error) { return nil, nil }

// Delete is a no-op.
func (n *Noop) Delete(ctx context.Context, id string) error { return nil }

// Close is a no-op.
func (n *Noop) Close() error { return nil }
