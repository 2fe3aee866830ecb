package checkpoint

import (
	"context"
	"errors"

	"recipeagent"
)

// ErrNotFound is returned by Load when no checkpoint exists for the session.
var ErrNotFound = errors.New("checkpoint: session not found")

// Saver persists SessionState keyed by session id. Save must capture the full
// state so a later process can resume the session at the selection suspend
// point with nothing but the checkpoint.
type Saver interface {
	Save(ctx context.Context, sessionID string, state *recipeagent.SessionState) error
	Load(ctx context.Context, sessionID string) (*recipeagent.SessionState, error)
	Delete(ctx context.Context, sessionID string) error
}
