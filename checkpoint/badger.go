package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"recipeagent"
)

const keyPrefix = "session/"

// BadgerSaver stores checkpoints in an embedded Badger database, so REPL
// sessions survive process restarts.
type BadgerSaver struct {
	db *badger.DB
}

// NewBadgerSaver opens (or creates) a Badger database at path.
func NewBadgerSaver(path string) (*BadgerSaver, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	return &BadgerSaver{db: db}, nil
}

// NewInMemoryBadgerSaver opens a Badger database that lives only in memory.
func NewInMemoryBadgerSaver() (*BadgerSaver, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory checkpoint db: %w", err)
	}
	return &BadgerSaver{db: db}, nil
}

func (b *BadgerSaver) Save(ctx context.Context, sessionID string, state *recipeagent.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+sessionID), data)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint for %s: %w", sessionID, err)
	}
	return nil
}

func (b *BadgerSaver) Load(ctx context.Context, sessionID string) (*recipeagent.SessionState, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + sessionID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for %s: %w", sessionID, err)
	}

	var state recipeagent.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func (b *BadgerSaver) Delete(ctx context.Context, sessionID string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + sessionID))
	})
	if err != nil {
		return fmt.Errorf("delete checkpoint for %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the underlying database.
func (b *BadgerSaver) Close() error {
	return b.db.Close()
}
