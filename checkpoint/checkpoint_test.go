package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeagent"
)

func sampleState() *recipeagent.SessionState {
	return &recipeagent.SessionState{
		Intent: recipeagent.IntentRecipe,
		Candidates: []recipeagent.RecipeCandidate{
			{
				ID:    "r1",
				Title: "Garlic Fried Rice",
				Ingredients: []recipeagent.Ingredient{
					{Name: "rice", Quantity: "200g"},
					{Name: "garlic", Quantity: "2 cloves"},
				},
				Steps:  []string{"Cook rice.", "Fry garlic.", "Combine."},
				Source: recipeagent.SourceGenerated,
			},
		},
		IterationCount:    2,
		Constraints:       &recipeagent.Constraints{Servings: 2, Cuisine: "asian"},
		AwaitingSelection: true,
		History: []recipeagent.ChatMessage{
			{Role: recipeagent.RoleUser, Content: "quick asian dinner for 2"},
		},
	}
}

func testSaverRoundtrip(t *testing.T, saver Saver) {
	t.Helper()
	ctx := context.Background()

	_, err := saver.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	original := sampleState()
	require.NoError(t, saver.Save(ctx, "s1", original))

	// Mutate the original after saving; the checkpoint must not change.
	original.IterationCount = 99
	original.Candidates = nil

	loaded, err := saver.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.IterationCount)
	assert.True(t, loaded.AwaitingSelection)
	require.Len(t, loaded.Candidates, 1)
	assert.Equal(t, "Garlic Fried Rice", loaded.Candidates[0].Title)
	require.NotNil(t, loaded.Constraints)
	assert.Equal(t, 2, loaded.Constraints.Servings)
	assert.Equal(t, "asian", loaded.Constraints.Cuisine)
	require.Len(t, loaded.History, 1)
}

func TestMemorySaver(t *testing.T) {
	saver := NewMemorySaver()
	testSaverRoundtrip(t, saver)

	ctx := context.Background()
	require.NoError(t, saver.Delete(ctx, "s1"))
	_, err := saver.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerSaver(t *testing.T) {
	saver, err := NewInMemoryBadgerSaver()
	require.NoError(t, err)
	defer saver.Close()

	testSaverRoundtrip(t, saver)

	ctx := context.Background()
	require.NoError(t, saver.Delete(ctx, "s1"))
	_, err = saver.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerSaverPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	saver, err := NewBadgerSaver(dir)
	require.NoError(t, err)
	require.NoError(t, saver.Save(ctx, "s1", sampleState()))
	require.NoError(t, saver.Close())

	reopened, err := NewBadgerSaver(dir)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, loaded.AwaitingSelection)
	assert.Equal(t, 2, loaded.IterationCount)
}
