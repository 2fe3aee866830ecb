package flow

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"recipeagent"
	"recipeagent/pantry"
)

// State names the interaction states a turn may pass through. Each turn starts
// either at LOADING_PANTRY (fresh flow) or at HANDLING_SELECTION (resuming
// from the selection suspend point).
type State string

const (
	StateLoadingPantry        State = "LOADING_PANTRY"
	StateClassifying          State = "CLASSIFYING"
	StatePantryAdd            State = "PANTRY_ADD"
	StatePantryRemove         State = "PANTRY_REMOVE"
	StatePantryList           State = "PANTRY_LIST"
	StateParsing              State = "PARSING"
	StateGenerating           State = "GENERATING"
	StateRetrieving           State = "RETRIEVING"
	StateAwaitingSelection    State = "AWAITING_SELECTION"
	StateHandlingSelection    State = "HANDLING_SELECTION"
	StateComputingGroceryList State = "COMPUTING_GROCERY_LIST"
	StateFormatting           State = "FORMATTING"
	StateEnd                  State = "END"
)

// ExhaustionPolicy decides what happens when the user keeps asking for more
// options after the regeneration cap is reached.
type ExhaustionPolicy string

const (
	// ExhaustForce keeps the current candidates and asks the user to pick one.
	ExhaustForce ExhaustionPolicy = "force"
	// ExhaustReport ends the flow with an exhaustion message.
	ExhaustReport ExhaustionPolicy = "report"
)

// ParseExhaustionPolicy maps a config string onto a policy.
func ParseExhaustionPolicy(s string) (ExhaustionPolicy, error) {
	switch ExhaustionPolicy(s) {
	case ExhaustForce, ExhaustReport:
		return ExhaustionPolicy(s), nil
	case "":
		return ExhaustForce, nil
	}
	return "", fmt.Errorf("unknown exhaustion policy %q", s)
}

// Generator produces recipe candidates from the pantry and the parsed
// constraints. recipes.Generator satisfies this.
type Generator interface {
	Generate(ctx context.Context, items []pantry.Item, c recipeagent.Constraints) ([]recipeagent.RecipeCandidate, error)
}

// Retriever searches the cookbook corpus. recipes.Retriever satisfies this.
type Retriever interface {
	Search(ctx context.Context, pantryNames []string, query string, required []string) ([]recipeagent.RecipeCandidate, error)
}

// Machine is the interaction state machine. It advances a session by exactly
// one user turn per Turn call and never runs steps concurrently for the same
// session; the caller owns serialization of SessionState between turns.
type Machine struct {
	pantry           *pantry.Store
	llm              recipeagent.LLM
	generator        Generator
	retriever        Retriever
	maxRegenerations int
	exhaustion       ExhaustionPolicy
}

// MachineOpts configures a Machine. Pantry, LLM and Generator are required;
// the retriever may be nil when cookbook search is not wired (the recipe_db
// intent then reports search as unavailable).
type MachineOpts struct {
	Pantry           *pantry.Store
	LLM              recipeagent.LLM
	Generator        Generator
	Retriever        Retriever
	MaxRegenerations int
	Exhaustion       ExhaustionPolicy
}

func NewMachine(opts MachineOpts) (*Machine, error) {
	if opts.Pantry == nil {
		return nil, fmt.Errorf("flow: pantry store is required")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("flow: llm is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("flow: generator is required")
	}
	if opts.MaxRegenerations <= 0 {
		opts.MaxRegenerations = 3
	}
	if opts.Exhaustion == "" {
		opts.Exhaustion = ExhaustForce
	}
	return &Machine{
		pantry:           opts.Pantry,
		llm:              opts.LLM,
		generator:        opts.Generator,
		retriever:        opts.Retriever,
		maxRegenerations: opts.MaxRegenerations,
		exhaustion:       opts.Exhaustion,
	}, nil
}

// Result is the outcome of one turn. AwaitingSelection mirrors the session
// state after the turn; Completed is true only when a recipe was selected and
// the final answer rendered this turn.
type Result struct {
	Message           string
	AwaitingSelection bool
	Completed         bool
	Intent            recipeagent.Intent
	States            []string
	LLMCalls          []recipeagent.LLMCallLog
}

// turn carries one utterance through the machine and accumulates the trace.
type turn struct {
	st        *recipeagent.SessionState
	utterance string
	states    []string
	llmCalls  []recipeagent.LLMCallLog
}

func (t *turn) enter(s State) {
	t.states = append(t.states, string(s))
	slog.Debug("FLOW: entering state", "state", s)
}

// Turn advances the session by one user turn. Recoverable conditions
// (classification ambiguity, underspecified requests, empty results, invalid
// selection replies, external-service failures) come back as user-facing
// messages with a nil error; a non-nil error means the turn itself failed
// (pantry store unreadable) and Message still carries what to tell the user.
func (m *Machine) Turn(ctx context.Context, st *recipeagent.SessionState, utterance string) (Result, error) {
	ctx, span := otel.Tracer(recipeagent.TracerNameFlow).Start(ctx, "Machine.Turn")
	defer span.End()

	t := &turn{st: st, utterance: utterance}
	st.History = append(st.History, recipeagent.ChatMessage{Role: recipeagent.RoleUser, Content: utterance})

	var res Result
	var err error
	if st.AwaitingSelection {
		t.enter(StateHandlingSelection)
		res, err = m.handleSelection(ctx, t)
	} else {
		resetFlow(st)
		res, err = m.runFlow(ctx, t)
	}

	res.Intent = st.Intent
	res.States = t.states
	res.LLMCalls = t.llmCalls
	res.AwaitingSelection = st.AwaitingSelection
	if res.Message != "" {
		st.History = append(st.History, recipeagent.ChatMessage{Role: recipeagent.RoleAssistant, Content: res.Message})
	}
	return res, err
}

// resetFlow clears per-flow state at the start of a fresh flow. The
// conversation history survives; everything else belongs to the previous flow.
func resetFlow(st *recipeagent.SessionState) {
	st.Intent = ""
	st.Candidates = nil
	st.Selected = nil
	st.IterationCount = 0
	st.Constraints = nil
	st.AwaitingSelection = false
}

// runFlow drives a fresh flow from LOADING_PANTRY to a terminal state or to
// the selection suspend point.
func (m *Machine) runFlow(ctx context.Context, t *turn) (Result, error) {
	t.enter(StateLoadingPantry)
	items, err := m.pantry.Items(ctx)
	if err != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: pantry load failed", "error", err)
		return Result{Message: msgPantryUnavailable}, fmt.Errorf("load pantry: %w", err)
	}

	t.enter(StateClassifying)
	intent := m.classifyIntent(ctx, t)
	t.st.Intent = intent

	switch intent {
	case recipeagent.IntentPantryAdd:
		t.enter(StatePantryAdd)
		return m.pantryAdd(ctx, t)
	case recipeagent.IntentPantryRemove:
		t.enter(StatePantryRemove)
		return m.pantryRemove(ctx, t)
	case recipeagent.IntentPantryList:
		t.enter(StatePantryList)
		return m.pantryList(ctx, t)
	}

	// recipe / recipe_db
	t.enter(StateParsing)
	constraints, perr := m.parseConstraints(ctx, t)
	if perr != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: constraint parsing failed", "error", perr)
		return Result{Message: msgParseFailed}, nil
	}
	t.st.Constraints = &constraints

	if constraints.NeedsClarification {
		t.enter(StateEnd)
		question := constraints.ClarificationQuestion
		if question == "" {
			question = msgDefaultClarification
		}
		return Result{Message: question}, nil
	}

	return m.produceCandidates(ctx, t, items)
}

// produceCandidates runs generation or cookbook retrieval, then either ends
// the flow (empty or failed) or suspends at AWAITING_SELECTION.
func (m *Machine) produceCandidates(ctx context.Context, t *turn, items []pantry.Item) (Result, error) {
	st := t.st
	constraints := recipeagent.Constraints{}
	if st.Constraints != nil {
		constraints = *st.Constraints
	}

	var candidates []recipeagent.RecipeCandidate
	var err error
	if st.Intent == recipeagent.IntentRecipeDB {
		t.enter(StateRetrieving)
		if m.retriever == nil {
			t.enter(StateEnd)
			return Result{Message: msgSearchUnavailable}, nil
		}
		names := make([]string, 0, len(items)+len(constraints.ExtraIngredients))
		for _, it := range items {
			names = append(names, it.Name)
		}
		names = append(names, constraints.ExtraIngredients...)
		candidates, err = m.retriever.Search(ctx, names, t.utterance, constraints.RequiredIngredients)
	} else {
		t.enter(StateGenerating)
		candidates, err = m.generator.Generate(ctx, items, constraints)
	}
	if err != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: candidate production failed", "intent", st.Intent, "error", err)
		return Result{Message: msgServiceUnavailable}, nil
	}
	if len(candidates) == 0 {
		t.enter(StateEnd)
		return Result{Message: msgNoCandidates}, nil
	}

	st.Candidates = candidates
	st.AwaitingSelection = true
	t.enter(StateAwaitingSelection)
	return Result{
		Message:           renderCandidates(candidates, m.candidateShoppingPreview(ctx, candidates, constraints)),
		AwaitingSelection: true,
	}, nil
}

// candidateShoppingPreview computes the items-to-buy preview per candidate.
// Preview only; a diff failure here degrades the rendering, never the turn.
func (m *Machine) candidateShoppingPreview(ctx context.Context, candidates []recipeagent.RecipeCandidate, c recipeagent.Constraints) [][]recipeagent.Ingredient {
	previews := make([][]recipeagent.Ingredient, len(candidates))
	for i, cand := range candidates {
		missing, err := m.pantry.Diff(ctx, cand.Ingredients, c.ExtraIngredients...)
		if err != nil {
			slog.Warn("FLOW: shopping preview diff failed", "candidate", cand.Title, "error", err)
			return nil
		}
		previews[i] = missing
	}
	return previews
}

// handleSelection consumes the reply to a pending candidate list. Policy, in
// order: "more" regenerates while under the cap (or applies the exhaustion
// policy), an index or unique title picks, ambiguity and out-of-range replies
// re-prompt without touching the iteration count, and anything else is a
// mid-flow restart with the new utterance.
func (m *Machine) handleSelection(ctx context.Context, t *turn) (Result, error) {
	st := t.st
	sel := resolveSelection(t.utterance, st.Candidates)

	switch sel.kind {
	case selectMore:
		if st.IterationCount >= m.maxRegenerations {
			return m.handleExhaustion(t)
		}
		st.IterationCount++
		st.Candidates = nil
		st.AwaitingSelection = false
		if st.Constraints != nil {
			st.Constraints.WantsMore = true
		}
		t.enter(StateLoadingPantry)
		items, err := m.pantry.Items(ctx)
		if err != nil {
			t.enter(StateEnd)
			slog.Error("FLOW: pantry load failed", "error", err)
			return Result{Message: msgPantryUnavailable}, fmt.Errorf("load pantry: %w", err)
		}
		return m.produceCandidates(ctx, t, items)

	case selectPick:
		picked := st.Candidates[sel.index]
		st.AwaitingSelection = false
		return m.finishSelection(ctx, t, picked)

	case selectAmbiguous:
		// Stay suspended; ambiguity is never resolved by guessing.
		return Result{Message: renderAmbiguous(sel.matches)}, nil

	case selectInvalid:
		return Result{Message: renderInvalidSelection(len(st.Candidates))}, nil
	}

	// Unrelated reply: the escape hatch. Restart the flow with this utterance.
	resetFlow(st)
	return m.runFlow(ctx, t)
}

// handleExhaustion applies the configured policy once the regeneration cap is
// hit and the user still asks for more.
func (m *Machine) handleExhaustion(t *turn) (Result, error) {
	st := t.st
	if m.exhaustion == ExhaustReport {
		st.Candidates = nil
		st.AwaitingSelection = false
		t.enter(StateEnd)
		return Result{Message: msgExhausted}, nil
	}
	// Force: keep the current candidates and insist on a choice.
	return Result{Message: msgForceSelection + "\n\n" + renderCandidates(st.Candidates, nil)}, nil
}

// finishSelection computes the grocery diff for the picked recipe and renders
// the final answer.
func (m *Machine) finishSelection(ctx context.Context, t *turn, picked recipeagent.RecipeCandidate) (Result, error) {
	st := t.st
	t.enter(StateComputingGroceryList)

	var extras []string
	if st.Constraints != nil {
		extras = st.Constraints.ExtraIngredients
	}
	missing, err := m.pantry.Diff(ctx, picked.Ingredients, extras...)
	if err != nil {
		t.enter(StateEnd)
		slog.Error("FLOW: grocery diff failed", "error", err)
		return Result{Message: msgPantryUnavailable}, fmt.Errorf("grocery diff: %w", err)
	}
	st.Selected = &picked

	t.enter(StateFormatting)
	msg := renderFinal(picked, missing)
	t.enter(StateEnd)
	return Result{Message: msg, Completed: true}, nil
}

// complete wraps the model call so every turn carries a per-call trace.
func (m *Machine) complete(ctx context.Context, t *turn, purpose, system string, msgs []recipeagent.ChatMessage) (string, error) {
	out, err := m.llm.Complete(ctx, system, msgs)
	call := recipeagent.LLMCallLog{Purpose: purpose, Output: out}
	if len(msgs) > 0 {
		call.Input = msgs[len(msgs)-1].Content
	}
	if err != nil {
		call.Error = err.Error()
	}
	t.llmCalls = append(t.llmCalls, call)
	return out, err
}
