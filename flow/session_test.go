package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeagent"
	"recipeagent/checkpoint"
)

type captureNotifier struct {
	channel  string
	messages []string
}

func (n *captureNotifier) PostMessage(ctx context.Context, channel string, message string) error {
	n.channel = channel
	n.messages = append(n.messages, message)
	return nil
}

type captureTurnLogger struct {
	turns []recipeagent.TurnLog
}

func (l *captureTurnLogger) LogTurn(turn recipeagent.TurnLog) error {
	l.turns = append(l.turns, turn)
	return nil
}

func TestSessionResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := seededPantry(t)
	model := &scriptedLLM{
		classifyOut: "recipe",
		parseOut:    `{"servings": 2, "cuisine": "asian"}`,
	}
	saver := checkpoint.NewMemorySaver()

	newMachine := func() *Machine {
		return newTestMachine(t, MachineOpts{
			Pantry:    store,
			LLM:       model,
			Generator: &fakeGenerator{batch: candidateBatch()},
		})
	}

	// Uninterrupted run for the reference output.
	ref := recipeagent.NewSessionState()
	refMachine := newMachine()
	_, err := refMachine.Turn(ctx, ref, "quick asian dinner for 2")
	require.NoError(t, err)
	refRes, err := refMachine.Turn(ctx, ref, "1")
	require.NoError(t, err)
	require.True(t, refRes.Completed)

	// Same inputs, but suspend, drop all in-memory state, and resume from the
	// checkpoint in a fresh session and machine.
	first, err := NewSession(SessionOpts{ID: "sess-1", Machine: newMachine(), Saver: saver})
	require.NoError(t, err)
	res, err := first.HandleTurn(ctx, "quick asian dinner for 2")
	require.NoError(t, err)
	require.True(t, res.AwaitingSelection)

	resumed, err := NewSession(SessionOpts{ID: "sess-1", Machine: newMachine(), Saver: saver})
	require.NoError(t, err)
	res, err = resumed.HandleTurn(ctx, "1")
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, refRes.Message, res.Message)

	st, err := saver.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, st.Selected)
	assert.Equal(t, "Garlic Fried Rice", st.Selected.Title)
	assert.False(t, st.AwaitingSelection)
}

func TestSessionPreservesIterationCountAcrossRestart(t *testing.T) {
	ctx := context.Background()
	model := &scriptedLLM{classifyOut: "recipe", parseOut: `{}`}
	saver := checkpoint.NewMemorySaver()
	gen := &fakeGenerator{batch: candidateBatch()}
	machine := newTestMachine(t, MachineOpts{Pantry: seededPantry(t), LLM: model, Generator: gen})

	first, err := NewSession(SessionOpts{ID: "sess-2", Machine: machine, Saver: saver})
	require.NoError(t, err)
	_, err = first.HandleTurn(ctx, "dinner ideas")
	require.NoError(t, err)
	_, err = first.HandleTurn(ctx, "more")
	require.NoError(t, err)
	_, err = first.HandleTurn(ctx, "more")
	require.NoError(t, err)

	st, err := saver.Load(ctx, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, 2, st.IterationCount)
	assert.Len(t, st.Candidates, 3)
	require.NotNil(t, st.Constraints)
}

func TestSessionNotifiesOnCompletion(t *testing.T) {
	ctx := context.Background()
	model := &scriptedLLM{classifyOut: "recipe", parseOut: `{}`}
	notifier := &captureNotifier{}
	sess, err := NewSession(SessionOpts{
		Machine: newTestMachine(t, MachineOpts{
			Pantry:    seededPantry(t),
			LLM:       model,
			Generator: &fakeGenerator{batch: candidateBatch()},
		}),
		Saver:    checkpoint.NewMemorySaver(),
		Notifier: notifier,
		Channel:  "#cooking",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())

	_, err = sess.HandleTurn(ctx, "dinner ideas")
	require.NoError(t, err)
	assert.Empty(t, notifier.messages)

	res, err := sess.HandleTurn(ctx, "1")
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "#cooking", notifier.channel)
	assert.Equal(t, res.Message, notifier.messages[0])
}

func TestSessionLogsTurns(t *testing.T) {
	ctx := context.Background()
	model := &scriptedLLM{classifyOut: "recipe", parseOut: `{}`}
	logger := &captureTurnLogger{}
	sess, err := NewSession(SessionOpts{
		ID: "sess-3",
		Machine: newTestMachine(t, MachineOpts{
			Pantry:    seededPantry(t),
			LLM:       model,
			Generator: &fakeGenerator{batch: candidateBatch()},
		}),
		Saver:  checkpoint.NewMemorySaver(),
		Logger: logger,
	})
	require.NoError(t, err)

	_, err = sess.HandleTurn(ctx, "dinner ideas")
	require.NoError(t, err)

	require.Len(t, logger.turns, 1)
	turn := logger.turns[0]
	assert.Equal(t, 1, turn.Turn)
	assert.Equal(t, "sess-3", turn.SessionID)
	assert.Equal(t, "dinner ideas", turn.Utterance)
	assert.Equal(t, "recipe", turn.Intent)
	assert.Contains(t, turn.States, string(StateClassifying))
	assert.Contains(t, turn.States, string(StateAwaitingSelection))
	require.Len(t, turn.LLMCalls, 2)
	assert.Equal(t, "classify_intent", turn.LLMCalls[0].Purpose)
	assert.Equal(t, "parse_constraints", turn.LLMCalls[1].Purpose)
}
