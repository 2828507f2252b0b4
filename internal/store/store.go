// Package store implements the persistence collaborator for player records:
// a remote HTTP store, a local SQLite store and a fallback combining them.
package store

import (
	"context"
	"errors"
	"sync"

	"super_clicker/internal/domain"
)

var (
	// ErrNotFound means the store has no record for the user.
	ErrNotFound = errors.New("record not found")
	// ErrUnreachable means the store could not be reached. Callers may retry.
	ErrUnreachable = errors.New("store unreachable")
)

// Store fetches and persists full player records.
type Store interface {
	Fetch(ctx context.Context, userID int64) (*domain.PlayerRecord, error)
	Store(ctx context.Context, rec *domain.PlayerRecord) error
}

// Memory is an in-process Store, used by tools and tests.
type Memory struct {
	mu      sync.Mutex
	records map[int64]*domain.PlayerRecord
}

func NewMemory() *Memory {
	return &Memory{records: map[int64]*domain.PlayerRecord{}}
}

func (m *Memory) Fetch(ctx context.Context, userID int64) (*domain.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	if rec == nil {
		return errors.New("nil record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.UserID] = rec.Clone()
	return nil
}
