package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"recipeagent"
	"recipeagent/llm"
	"recipeagent/pantry"
)

// historyWindow bounds how much conversation context the classifier sees.
const historyWindow = 10

// classifyIntent maps the utterance onto the closed intent set. It never
// fails: anything the model returns outside the set, and any model error,
// falls back to pantry_list.
func (m *Machine) classifyIntent(ctx context.Context, t *turn) recipeagent.Intent {
	history := t.st.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	out, err := m.complete(ctx, t, "classify_intent", classifySystemPrompt, history)
	if err != nil {
		slog.Warn("FLOW: intent classification failed, falling back", "error", err)
		return recipeagent.IntentPantryList
	}

	label := strings.ToLower(strings.TrimSpace(out))
	label = strings.Trim(label, `"'.`)
	if !recipeagent.KnownIntent(label) {
		slog.Warn("FLOW: unrecognized intent, falling back", "output", out)
		return recipeagent.IntentPantryList
	}
	return recipeagent.Intent(label)
}

// constraintsSchema describes the parser's output contract; it is embedded in
// the parse prompt.
func constraintsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"servings":               {Type: "integer"},
			"max_minutes":            {Type: "integer"},
			"diet_tags":              {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"cuisine":                {Type: "string"},
			"extra_ingredients":      {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"required_ingredients":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"needs_clarification":    {Type: "boolean"},
			"clarification_question": {Type: "string"},
		},
	}
}

// parseConstraints extracts the structured constraints for a recipe-seeking
// turn. Cookbook searches are never held up for clarification; the free-text
// query carries whatever the parser missed.
func (m *Machine) parseConstraints(ctx context.Context, t *turn) (recipeagent.Constraints, error) {
	schemaJSON, err := json.Marshal(constraintsSchema())
	if err != nil {
		return recipeagent.Constraints{}, fmt.Errorf("marshal constraints schema: %w", err)
	}

	system := fmt.Sprintf(parseSystemPrompt, schemaJSON)
	out, err := m.complete(ctx, t, "parse_constraints", system, []recipeagent.ChatMessage{
		{Role: recipeagent.RoleUser, Content: t.utterance},
	})
	if err != nil {
		return recipeagent.Constraints{}, fmt.Errorf("parse constraints: %w", err)
	}

	var c recipeagent.Constraints
	if err := llm.DecodeJSON(out, &c); err != nil {
		return recipeagent.Constraints{}, fmt.Errorf("parser output: %w", err)
	}

	if t.st.Intent == recipeagent.IntentRecipeDB {
		c.NeedsClarification = false
		c.ClarificationQuestion = ""
	}
	return c, nil
}

// pantryAdd extracts the ingredients to add and merges them into the store.
func (m *Machine) pantryAdd(ctx context.Context, t *turn) (Result, error) {
	out, err := m.complete(ctx, t, "extract_add_items", pantryAddSystemPrompt, []recipeagent.ChatMessage{
		{Role: recipeagent.RoleUser, Content: t.utterance},
	})
	if err != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: add extraction failed", "error", err)
		return Result{Message: msgAddFailed}, nil
	}

	var raw []struct {
		Name     string `json:"name"`
		Quantity string `json:"quantity"`
		Category string `json:"category"`
	}
	if err := llm.DecodeJSON(out, &raw); err != nil || len(raw) == 0 {
		t.enter(StateEnd)
		return Result{Message: msgAddFailed}, nil
	}

	items := make([]pantry.Item, 0, len(raw))
	names := make([]string, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		items = append(items, pantry.Item{
			Name:     r.Name,
			Quantity: r.Quantity,
			Category: pantry.Category(strings.ToLower(r.Category)),
		})
		names = append(names, pantry.Normalize(r.Name))
	}
	if len(items) == 0 {
		t.enter(StateEnd)
		return Result{Message: msgAddFailed}, nil
	}

	total, err := m.pantry.Add(ctx, items)
	if err != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: pantry add failed", "error", err)
		return Result{Message: msgPantryUnavailable}, fmt.Errorf("pantry add: %w", err)
	}

	t.enter(StateEnd)
	return Result{Message: fmt.Sprintf("Added %s to your pantry. It now holds %d item(s).", humanJoin(names), total)}, nil
}

// pantryRemove extracts the names to remove. Absent names are silently
// skipped by the store.
func (m *Machine) pantryRemove(ctx context.Context, t *turn) (Result, error) {
	out, err := m.complete(ctx, t, "extract_remove_items", pantryRemoveSystemPrompt, []recipeagent.ChatMessage{
		{Role: recipeagent.RoleUser, Content: t.utterance},
	})
	if err != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: remove extraction failed", "error", err)
		return Result{Message: msgRemoveFailed}, nil
	}

	var names []string
	if err := llm.DecodeJSON(out, &names); err != nil {
		t.enter(StateEnd)
		return Result{Message: msgRemoveFailed}, nil
	}
	cleaned := names[:0]
	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			cleaned = append(cleaned, pantry.Normalize(n))
		}
	}
	if len(cleaned) == 0 {
		t.enter(StateEnd)
		return Result{Message: msgRemoveFailed}, nil
	}

	remaining, err := m.pantry.Remove(ctx, cleaned)
	if err != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: pantry remove failed", "error", err)
		return Result{Message: msgPantryUnavailable}, fmt.Errorf("pantry remove: %w", err)
	}

	t.enter(StateEnd)
	return Result{Message: fmt.Sprintf("Removed %s from your pantry. %d item(s) left.", humanJoin(cleaned), remaining)}, nil
}

// pantryList renders the pantry grouped by category.
func (m *Machine) pantryList(ctx context.Context, t *turn) (Result, error) {
	grouped, err := m.pantry.ByCategory(ctx)
	if err != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: pantry list failed", "error", err)
		return Result{Message: msgPantryUnavailable}, fmt.Errorf("pantry list: %w", err)
	}

	t.enter(StateEnd)
	if len(grouped) == 0 {
		return Result{Message: msgPantryEmpty}, nil
	}
	return Result{Message: renderPantry(grouped)}, nil
}

// humanJoin joins names as "a, b and c".
func humanJoin(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
