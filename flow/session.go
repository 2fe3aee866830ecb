package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"recipeagent"
	"recipeagent/checkpoint"
)

// Session is one long-lived conversation thread. It loads the session's
// checkpoint before every turn and saves it after, so the process may exit
// between turns and a later process can pick the conversation back up - in
// particular across the selection suspend point.
type Session struct {
	id          string
	machine     *Machine
	saver       checkpoint.Saver
	logger      recipeagent.TurnLogger
	notifier    recipeagent.Notifier
	channel     string
	turns       int
	turnCounter metric.Int64Counter
}

// SessionOpts configures a Session. Machine and Saver are required; ID
// defaults to a fresh UUID, Logger to a no-op, Notifier to none.
type SessionOpts struct {
	ID       string
	Machine  *Machine
	Saver    checkpoint.Saver
	Logger   recipeagent.TurnLogger
	Notifier recipeagent.Notifier
	Channel  string
}

func NewSession(opts SessionOpts) (*Session, error) {
	if opts.Machine == nil {
		return nil, fmt.Errorf("flow: machine is required")
	}
	if opts.Saver == nil {
		return nil, fmt.Errorf("flow: checkpoint saver is required")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = recipeagent.NewNoOpTurnLogger()
	}

	counter, err := otel.Meter(recipeagent.TracerNameSession).Int64Counter("session.turns")
	if err != nil {
		return nil, fmt.Errorf("flow: create turn counter: %w", err)
	}

	return &Session{
		id:          opts.ID,
		machine:     opts.Machine,
		saver:       opts.Saver,
		logger:      opts.Logger,
		notifier:    opts.Notifier,
		channel:     opts.Channel,
		turnCounter: counter,
	}, nil
}

// ID returns the session identifier used as the checkpoint key.
func (s *Session) ID() string {
	return s.id
}

// HandleTurn runs one user turn end to end: load checkpoint, advance the
// machine, save checkpoint, log, notify on completion. The returned Result
// carries a user-facing message even when err is non-nil.
func (s *Session) HandleTurn(ctx context.Context, utterance string) (Result, error) {
	ctx, span := otel.Tracer(recipeagent.TracerNameSession).Start(ctx, "Session.HandleTurn",
		trace.WithAttributes(attribute.String("session.id", s.id)))
	defer span.End()

	st, err := s.saver.Load(ctx, s.id)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		st = recipeagent.NewSessionState()
	case err != nil:
		return Result{Message: msgPantryUnavailable}, fmt.Errorf("load session %q: %w", s.id, err)
	}

	s.turns++
	s.turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("session.id", s.id)))
	res, turnErr := s.machine.Turn(ctx, st, utterance)

	// Save every turn, not just at the suspend point, so the whole
	// conversation history survives a restart.
	if err := s.saver.Save(ctx, s.id, st); err != nil {
		s.logTurn(utterance, res, fmt.Errorf("save session %q: %w", s.id, err))
		return res, fmt.Errorf("save session %q: %w", s.id, err)
	}

	s.logTurn(utterance, res, turnErr)

	if res.Completed && s.notifier != nil {
		if err := s.notifier.PostMessage(ctx, s.channel, res.Message); err != nil {
			slog.Warn("SESSION: completion notification failed", "session_id", s.id, "error", err)
		}
	}
	return res, turnErr
}

func (s *Session) logTurn(utterance string, res Result, err error) {
	turn := recipeagent.TurnLog{
		Turn:      s.turns,
		SessionID: s.id,
		Timestamp: time.Now(),
		Utterance: utterance,
		Intent:    string(res.Intent),
		States:    res.States,
		LLMCalls:  res.LLMCalls,
		Response:  res.Message,
	}
	if err != nil {
		turn.Error = err.Error()
	}
	if lerr := s.logger.LogTurn(turn); lerr != nil {
		slog.Error("SESSION: failed to log turn", "session_id", s.id, "error", lerr)
	}
}
