package recipes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeagent"
	"recipeagent/pantry"
)

type fakeLLM struct {
	response string
	err      error
	gotSys   string
	gotMsgs  []recipeagent.ChatMessage
}

func (f *fakeLLM) Complete(ctx context.Context, system string, msgs []recipeagent.ChatMessage) (string, error) {
	f.gotSys = system
	f.gotMsgs = msgs
	return f.response, f.err
}

const generationOutput = `[
  {
    "title": "Garlic Fried Rice",
    "description": "Quick fried rice with crispy garlic.",
    "ingredients": [
      {"name": "rice", "quantity": "200g"},
      {"name": "garlic", "quantity": "3 cloves"},
      {"name": "spring onion", "quantity": "2"}
    ],
    "steps": ["Cook rice.", "Fry garlic.", "Combine and season."],
    "est_minutes": 20,
    "difficulty": "easy"
  },
  {
    "title": "Chicken Stir Fry",
    "ingredients": [{"name": "chicken"}, {"name": "broccoli"}],
    "steps": ["Stir fry everything."],
    "est_minutes": 25,
    "difficulty": "medium"
  }
]`

func TestGeneratorGenerate(t *testing.T) {
	model := &fakeLLM{response: generationOutput}
	g := NewGenerator(model)

	items := []pantry.Item{{Name: "rice"}, {Name: "garlic"}, {Name: "chicken"}}
	constraints := recipeagent.Constraints{
		Servings:            2,
		Cuisine:             "asian",
		DietTags:            []string{"gluten-free"},
		RequiredIngredients: []string{"garlic"},
		ExtraIngredients:    []string{"spring onion"},
	}

	got, err := g.Generate(context.Background(), items, constraints)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Garlic Fried Rice", first.Title)
	assert.Equal(t, recipeagent.SourceGenerated, first.Source)
	assert.Equal(t, 20, first.EstMinutes)
	assert.Equal(t, recipeagent.DifficultyEasy, first.Difficulty)
	require.Len(t, first.Ingredients, 3)

	// The request carries pantry, extras, requirements and preferences.
	require.Len(t, model.gotMsgs, 1)
	req := model.gotMsgs[0].Content
	assert.Contains(t, req, "rice, garlic, chicken, spring onion")
	assert.Contains(t, req, "must appear in ALL recipes): garlic")
	assert.Contains(t, req, "gluten-free")
	assert.Contains(t, req, "cuisine: asian")
	assert.Contains(t, req, "servings: 2")

	// The schema contract is part of the system prompt.
	assert.Contains(t, model.gotSys, `"est_minutes"`)
}

func TestGeneratorStripsFences(t *testing.T) {
	model := &fakeLLM{response: "```json\n" + generationOutput + "\n```"}
	g := NewGenerator(model)

	got, err := g.Generate(context.Background(), nil, recipeagent.Constraints{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGeneratorCapsAtThree(t *testing.T) {
	model := &fakeLLM{response: `[
		{"title": "A", "ingredients": [{"name": "a"}], "steps": ["s"]},
		{"title": "B", "ingredients": [{"name": "b"}], "steps": ["s"]},
		{"title": "C", "ingredients": [{"name": "c"}], "steps": ["s"]},
		{"title": "D", "ingredients": [{"name": "d"}], "steps": ["s"]}
	]`}
	g := NewGenerator(model)

	got, err := g.Generate(context.Background(), nil, recipeagent.Constraints{})
	require.NoError(t, err)
	assert.Len(t, got, MaxCandidates)
}

func TestGeneratorDropsInvalidCandidates(t *testing.T) {
	model := &fakeLLM{response: `[
		{"title": "", "ingredients": [{"name": "a"}], "steps": ["s"]},
		{"title": "No Ingredients", "ingredients": [], "steps": ["s"]},
		{"title": "Valid", "ingredients": [{"name": "rice"}], "steps": ["s"]}
	]`}
	g := NewGenerator(model)

	got, err := g.Generate(context.Background(), nil, recipeagent.Constraints{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Valid", got[0].Title)
}

func TestGeneratorBadOutput(t *testing.T) {
	g := NewGenerator(&fakeLLM{response: "I'd love to help! Here are some ideas..."})

	_, err := g.Generate(context.Background(), nil, recipeagent.Constraints{})
	assert.Error(t, err)
}

func TestGeneratorLLMError(t *testing.T) {
	g := NewGenerator(&fakeLLM{err: errors.New("model unavailable")})

	_, err := g.Generate(context.Background(), nil, recipeagent.Constraints{})
	assert.Error(t, err)
}
