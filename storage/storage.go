package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotExist is returned by Load when the backing object has never been written.
// Callers that can start from an empty document check for it with errors.Is.
var ErrNotExist = errors.New("storage: object does not exist")

// State is a whole-document store. Save must replace the entire document
// atomically so that a reader never observes a partial write.
type State interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// MemState is a simple in-memory implementation for testing.
type MemState struct {
	mu   sync.Mutex
	data []byte
	err  error
}

func NewMemState(data []byte) *MemState {
	return &MemState{data: data}
}

func NewMemStateWithError(err error) *MemState {
	return &MemState{err: err}
}

func (m *MemState) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.data == nil {
		return nil, ErrNotExist
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemState) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data = make([]byte, len(data))
	copy(m.data, data)
	return nil
}
