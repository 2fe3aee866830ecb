package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"recipeagent"
)

// MemorySaver keeps checkpoints in process memory. States are stored as JSON
// so Load always returns a fresh copy and serialization bugs surface in tests
// the same way they would against a durable backend.
type MemorySaver struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemorySaver() *MemorySaver {
	return &MemorySaver{states: make(map[string][]byte)}
}

func (m *MemorySaver) Save(ctx context.Context, sessionID string, state *recipeagent.SessionState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[sessionID] = b
	return nil
}

func (m *MemorySaver) Load(ctx context.Context, sessionID string) (*recipeagent.SessionState, error) {
	m.mu.RLock()
	b, ok := m.states[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrNotFound)
	}

	var state recipeagent.SessionState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func (m *MemorySaver) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
	return nil
}
