package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"recipeagent"
	"recipeagent/llm"
	"recipeagent/pantry"
)

// Generator produces recipe candidates from the pantry and the turn's
// constraints via the model. Output is schema-checked before anything reaches
// the selection prompt; no determinism across calls is assumed.
type Generator struct {
	llm recipeagent.LLM
}

func NewGenerator(model recipeagent.LLM) *Generator {
	return &Generator{llm: model}
}

// candidateSchema describes the JSON array the model must return. It is
// embedded in the system prompt so the contract travels with the request.
func candidateSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"title":       {Type: "string"},
				"description": {Type: "string"},
				"ingredients": {
					Type: "array",
					Items: &jsonschema.Schema{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"name":     {Type: "string"},
							"quantity": {Type: "string"},
						},
						Required: []string{"name"},
					},
				},
				"steps":       {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"est_minutes": {Type: "integer"},
				"difficulty":  {Type: "string", Enum: []any{"easy", "medium", "hard"}},
			},
			Required: []string{"title", "ingredients", "steps"},
		},
	}
}

const generateSystemPrompt = `You are a creative cook. Generate exactly 3 recipe suggestions.
Prioritize recipes that mostly use the available ingredients; keep items to buy as few as possible.
Each recipe's ingredients list must be complete (available items AND items to buy).
Respond with ONLY a JSON array matching this schema, no markdown fences, no commentary:
%s`

// Generate returns up to MaxCandidates candidates for the given pantry and
// constraints. A model reply that does not match the schema is an error.
func (g *Generator) Generate(ctx context.Context, items []pantry.Item, c recipeagent.Constraints) ([]recipeagent.RecipeCandidate, error) {
	schemaJSON, err := json.Marshal(candidateSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal candidate schema: %w", err)
	}

	system := fmt.Sprintf(generateSystemPrompt, schemaJSON)
	out, err := g.llm.Complete(ctx, system, []recipeagent.ChatMessage{
		{Role: recipeagent.RoleUser, Content: buildGenerateRequest(items, c)},
	})
	if err != nil {
		return nil, fmt.Errorf("generate recipes: %w", err)
	}

	var raw []struct {
		Title       string                   `json:"title"`
		Description string                   `json:"description"`
		Ingredients []recipeagent.Ingredient `json:"ingredients"`
		Steps       []string                 `json:"steps"`
		EstMinutes  int                      `json:"est_minutes"`
		Difficulty  recipeagent.Difficulty   `json:"difficulty"`
	}
	if err := llm.DecodeJSON(out, &raw); err != nil {
		return nil, fmt.Errorf("generation output: %w", err)
	}

	candidates := make([]recipeagent.RecipeCandidate, 0, MaxCandidates)
	for _, r := range raw {
		if len(candidates) == MaxCandidates {
			break
		}
		cand := recipeagent.RecipeCandidate{
			ID:          uuid.NewString(),
			Title:       r.Title,
			Description: r.Description,
			Ingredients: r.Ingredients,
			Steps:       r.Steps,
			EstMinutes:  r.EstMinutes,
			Difficulty:  r.Difficulty,
			Source:      recipeagent.SourceGenerated,
		}
		if !cand.IsValid() {
			slog.Warn("GENERATOR: dropping invalid candidate", "title", r.Title)
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func buildGenerateRequest(items []pantry.Item, c recipeagent.Constraints) string {
	available := make([]string, 0, len(items)+len(c.ExtraIngredients))
	for _, it := range items {
		available = append(available, it.Name)
	}
	available = append(available, c.ExtraIngredients...)

	var b strings.Builder
	fmt.Fprintf(&b, "Available ingredients: %s\n", orNone(strings.Join(available, ", ")))
	fmt.Fprintf(&b, "Required ingredients (must appear in ALL recipes): %s\n", orNone(strings.Join(c.RequiredIngredients, ", ")))
	fmt.Fprintf(&b, "Dietary constraints: %s\n", orNone(strings.Join(c.DietTags, ", ")))

	prefs := make([]string, 0, 3)
	if c.Cuisine != "" {
		prefs = append(prefs, fmt.Sprintf("cuisine: %s", c.Cuisine))
	}
	if c.Servings > 0 {
		prefs = append(prefs, fmt.Sprintf("servings: %d", c.Servings))
	}
	if c.MaxMinutes > 0 {
		prefs = append(prefs, fmt.Sprintf("max cook time: %d minutes", c.MaxMinutes))
	}
	fmt.Fprintf(&b, "Preferences: %s", orNone(strings.Join(prefs, ", ")))
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
