package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileState(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{
			name:     "basic document",
			filename: "pantry.json",
			data:     []byte(`{"ingredients": {"garlic": {"category": "condiment"}}}`),
		},
		{
			name:     "empty document",
			filename: "empty.json",
			data:     []byte(`{}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewFileState(filepath.Join(tmpDir, tt.filename))

			require.NoError(t, state.Save(ctx, tt.data))

			loaded, err := state.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.data, loaded)
		})
	}

	t.Run("load nonexistent file", func(t *testing.T) {
		state := NewFileState(filepath.Join(tmpDir, "nonexistent.json"))
		_, err := state.Load(ctx)
		assert.ErrorIs(t, err, ErrNotExist)
	})

	t.Run("save creates parent directories", func(t *testing.T) {
		state := NewFileState(filepath.Join(tmpDir, "nested", "deep", "doc.json"))
		require.NoError(t, state.Save(ctx, []byte(`{"ok": true}`)))

		loaded, err := state.Load(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok": true}`, string(loaded))
	})

	t.Run("save replaces whole document", func(t *testing.T) {
		path := filepath.Join(tmpDir, "replace.json")
		state := NewFileState(path)

		require.NoError(t, state.Save(ctx, []byte(`{"version": 1, "padding": "xxxxxxxxxxxxxxxx"}`)))
		require.NoError(t, state.Save(ctx, []byte(`{"version": 2}`)))

		loaded, err := state.Load(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `{"version": 2}`, string(loaded))

		// No temp files should be left behind.
		entries, err := os.ReadDir(tmpDir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp-")
		}
	})
}

func TestMemState(t *testing.T) {
	ctx := context.Background()

	t.Run("roundtrip", func(t *testing.T) {
		state := NewMemState(nil)
		_, err := state.Load(ctx)
		assert.ErrorIs(t, err, ErrNotExist)

		require.NoError(t, state.Save(ctx, []byte("data")))
		loaded, err := state.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), loaded)
	})

	t.Run("configured error", func(t *testing.T) {
		boom := errors.New("boom")
		state := NewMemStateWithError(boom)
		_, err := state.Load(ctx)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, state.Save(ctx, nil), boom)
	})
}
