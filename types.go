package recipeagent

import (
	"context"
	"net/http"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier delivers a completed flow's output to an external channel (e.g. Slack).
type Notifier interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

// LLM is the opaque language-model contract: prompt + context in, text out.
// All structured-output parsing and validation happens on the caller's side.
type LLM interface {
	Complete(ctx context.Context, system string, msgs []ChatMessage) (string, error)
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn record in a session's conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Intent is the closed set of classified user intents.
type Intent string

const (
	IntentRecipe       Intent = "recipe"
	IntentRecipeDB     Intent = "recipe_db"
	IntentPantryAdd    Intent = "pantry_add"
	IntentPantryRemove Intent = "pantry_remove"
	IntentPantryList   Intent = "pantry_list"
)

// KnownIntent reports whether s is a member of the closed intent set.
func KnownIntent(s string) bool {
	switch Intent(s) {
	case IntentRecipe, IntentRecipeDB, IntentPantryAdd, IntentPantryRemove, IntentPantryList:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type RecipeSource string

const (
	SourceGenerated RecipeSource = "generated"
	SourceRetrieved RecipeSource = "retrieved"
)

// Ingredient is a single recipe ingredient. Quantity is free text ("2 cloves").
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
}

// RecipeCandidate is one recipe option produced by generation or retrieval.
type RecipeCandidate struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []string     `json:"steps"`
	EstMinutes  int          `json:"est_minutes,omitempty"`
	Difficulty  Difficulty   `json:"difficulty,omitempty"`
	Source      RecipeSource `json:"source"`
	SourceRef   string       `json:"source_ref,omitempty"`
}

// IsValid checks if the candidate meets basic validation requirements.
// A candidate with no title or no ingredients cannot be presented for selection.
func (r *RecipeCandidate) IsValid() bool {
	if r.Title == "" {
		return false
	}
	if len(r.Ingredients) == 0 {
		return false
	}
	for _, ing := range r.Ingredients {
		if ing.Name == "" {
			return false
		}
	}
	return true
}

// Constraints are the structured slots extracted from a recipe-seeking
// utterance. Zero values mean "not specified". They live for one turn only.
type Constraints struct {
	Servings              int      `json:"servings,omitempty"`
	MaxMinutes            int      `json:"max_minutes,omitempty"`
	DietTags              []string `json:"diet_tags,omitempty"`
	Cuisine               string   `json:"cuisine,omitempty"`
	ExtraIngredients      []string `json:"extra_ingredients,omitempty"`
	RequiredIngredients   []string `json:"required_ingredients,omitempty"`
	WantsMore             bool     `json:"wants_more,omitempty"`
	NeedsClarification    bool     `json:"needs_clarification,omitempty"`
	ClarificationQuestion string   `json:"clarification_question,omitempty"`
}

// GroceryItem is one missing ingredient on the derived shopping list.
type GroceryItem struct {
	Name      string `json:"name"`
	Quantity  string `json:"quantity,omitempty"`
	ForRecipe string `json:"for_recipe,omitempty"`
}

// SessionState is the full serializable state of one session. It is mutated in
// place by the state machine and checkpointed at the selection suspend point,
// so a later process can resume the session by reloading it.
type SessionState struct {
	Intent            Intent            `json:"intent,omitempty"`
	Candidates        []RecipeCandidate `json:"candidates,omitempty"`
	Selected          *RecipeCandidate  `json:"selected,omitempty"`
	IterationCount    int               `json:"iteration_count"`
	Constraints       *Constraints      `json:"constraints,omitempty"`
	AwaitingSelection bool              `json:"awaiting_selection"`
	History           []ChatMessage     `json:"conversation_history,omitempty"`
}

// NewSessionState returns the initial state for a fresh session.
func NewSessionState() *SessionState {
	return &SessionState{}
}
