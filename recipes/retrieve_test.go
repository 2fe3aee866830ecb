package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeagent"
	"recipeagent/storage"
)

type fakeEmbedder struct {
	vectors   map[string][]float32
	fallback  []float32
	callCount int
	err       error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.callCount++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return f.fallback, nil
}

func testCorpus(t *testing.T, docs []Document) *Corpus {
	t.Helper()
	b, err := json.Marshal(docs)
	require.NoError(t, err)
	return NewCorpus(storage.NewMemState(b))
}

func docOf(id, title string, ings ...string) Document {
	d := Document{ID: id, Title: title, SourceFile: title + ".md"}
	for _, name := range ings {
		d.Ingredients = append(d.Ingredients, recipeagent.Ingredient{Name: name})
	}
	return d
}

func TestRetrieverOverlapRanking(t *testing.T) {
	corpus := testCorpus(t, []Document{
		docOf("d1", "Plain Toast", "bread", "butter"),
		docOf("d2", "Garlic Fried Rice", "rice", "garlic", "egg", "soy sauce"),
		docOf("d3", "Chicken Stir Fry", "chicken", "broccoli", "soy sauce", "garlic"),
	})
	r, err := NewRetriever(corpus, nil)
	require.NoError(t, err)

	got, err := r.Search(context.Background(), []string{"chicken", "rice", "broccoli", "soy sauce", "garlic"}, "", nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Chicken Stir Fry", got[0].Title)  // overlap 4
	assert.Equal(t, "Garlic Fried Rice", got[1].Title) // overlap 3
	assert.Equal(t, "Plain Toast", got[2].Title)       // overlap 0
}

func TestRetrieverTieBreakKeepsCorpusOrder(t *testing.T) {
	corpus := testCorpus(t, []Document{
		docOf("d1", "First Rice Dish", "rice", "onion"),
		docOf("d2", "Second Rice Dish", "rice", "carrot"),
	})
	r, err := NewRetriever(corpus, nil)
	require.NoError(t, err)

	got, err := r.Search(context.Background(), []string{"rice"}, "", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "First Rice Dish", got[0].Title)
	assert.Equal(t, "Second Rice Dish", got[1].Title)
}

func TestRetrieverRequiredFilter(t *testing.T) {
	corpus := testCorpus(t, []Document{
		docOf("d1", "Plain Rice", "rice", "salt"),
		docOf("d2", "Aubergine Curry", "aubergine", "rice", "curry paste"),
	})
	r, err := NewRetriever(corpus, nil)
	require.NoError(t, err)

	got, err := r.Search(context.Background(), []string{"rice"}, "", []string{"aubergine"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Aubergine Curry", got[0].Title)
}

func TestRetrieverCapsCandidates(t *testing.T) {
	docs := []Document{
		docOf("d1", "A", "rice"),
		docOf("d2", "B", "rice"),
		docOf("d3", "C", "rice"),
		docOf("d4", "D", "rice"),
	}
	r, err := NewRetriever(testCorpus(t, docs), nil)
	require.NoError(t, err)

	got, err := r.Search(context.Background(), []string{"rice"}, "", nil)
	require.NoError(t, err)
	assert.Len(t, got, MaxCandidates)
}

func TestRetrieverSemanticFallback(t *testing.T) {
	corpus := testCorpus(t, []Document{
		docOf("d1", "Beef Stew", "beef", "carrot"),
		docOf("d2", "Tomato Pasta", "pasta", "tomato"),
	})

	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"italian dinner":              {1, 0},
			"Beef Stew: beef, carrot":     {0, 1},
			"Tomato Pasta: pasta, tomato": {0.9, 0.1},
		},
	}
	r, err := NewRetriever(corpus, embedder)
	require.NoError(t, err)

	// Empty pantry triggers the semantic path.
	got, err := r.Search(context.Background(), nil, "italian dinner", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Tomato Pasta", got[0].Title)
	assert.Equal(t, recipeagent.SourceRetrieved, got[0].Source)

	// Document embeddings are cached; a second search embeds only the query.
	callsAfterFirst := embedder.callCount
	_, err = r.Search(context.Background(), nil, "italian dinner", nil)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst+1, embedder.callCount)
}

func TestRetrieverEmptyCorpus(t *testing.T) {
	r, err := NewRetriever(NewCorpus(storage.NewMemState(nil)), nil)
	require.NoError(t, err)

	got, err := r.Search(context.Background(), []string{"rice"}, "", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieverEmptyPantryNoEmbedder(t *testing.T) {
	corpus := testCorpus(t, []Document{docOf("d1", "A", "rice")})
	r, err := NewRetriever(corpus, nil)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), nil, "anything", nil)
	assert.Error(t, err)
}

func TestRetrieverEmbedderError(t *testing.T) {
	corpus := testCorpus(t, []Document{docOf("d1", "A", "rice")})
	r, err := NewRetriever(corpus, &fakeEmbedder{err: errors.New("down")})
	require.NoError(t, err)

	_, err = r.Search(context.Background(), nil, "anything", nil)
	assert.Error(t, err)
}
