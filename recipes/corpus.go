package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"recipeagent"
	"recipeagent/storage"
)

// Document is one cookbook entry in the retrieval corpus.
type Document struct {
	ID          string                   `json:"id"`
	Title       string                   `json:"title"`
	Description string                   `json:"description,omitempty"`
	Ingredients []recipeagent.Ingredient `json:"ingredients"`
	Steps       []string                 `json:"steps,omitempty"`
	EstMinutes  int                      `json:"est_minutes,omitempty"`
	Difficulty  recipeagent.Difficulty   `json:"difficulty,omitempty"`
	SourceFile  string                   `json:"source_file,omitempty"`
}

// Candidate converts the document into a retrieval-sourced candidate.
func (d Document) Candidate() recipeagent.RecipeCandidate {
	return recipeagent.RecipeCandidate{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Ingredients: d.Ingredients,
		Steps:       d.Steps,
		EstMinutes:  d.EstMinutes,
		Difficulty:  d.Difficulty,
		Source:      recipeagent.SourceRetrieved,
		SourceRef:   d.SourceFile,
	}
}

// Corpus reads the cookbook document set from its backing store. It reloads
// on every call: the retrieval contract is freshness over speed.
type Corpus struct {
	state storage.State
}

func NewCorpus(state storage.State) *Corpus {
	return &Corpus{state: state}
}

// Load returns all documents in corpus order. A store that has never been
// written yields an empty corpus, not an error.
func (c *Corpus) Load(ctx context.Context) ([]Document, error) {
	b, err := c.state.Load(ctx)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var docs []Document
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	return docs, nil
}
