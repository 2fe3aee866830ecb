package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"recipeagent"
	"recipeagent/checkpoint"
	"recipeagent/flow"
	"recipeagent/llm/ollama"
	"recipeagent/llm/openai"
	"recipeagent/pantry"
	"recipeagent/recipes"
	"recipeagent/slack"
	"recipeagent/storage"
)

// modelClient is what the flow and the retriever together need from a model
// backend.
type modelClient interface {
	recipeagent.LLM
	recipes.Embedder
}

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		slog.Debug("SETUP: no .env file loaded", "error", err)
	}

	var modelConfig recipeagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var agentConfig recipeagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	logger, cleanup, err := newTurnLogger(modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create turn logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush turn log", "error", err)
		}
	}()

	model, err := newModelClient(modelConfig, agentConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create LLM client", "error", err)
		return
	}

	pantryStore := pantry.NewStore(storage.NewFileState(agentConfig.PantryPath))
	corpus := recipes.NewCorpus(storage.NewFileState(agentConfig.CorpusPath))

	retriever, err := recipes.NewRetriever(corpus, model)
	if err != nil {
		slog.Error("SETUP: Failed to create retriever", "error", err)
		return
	}

	policy, err := flow.ParseExhaustionPolicy(agentConfig.ExhaustionPolicy)
	if err != nil {
		slog.Error("SETUP: Invalid exhaustion policy", "error", err)
		return
	}

	machine, err := flow.NewMachine(flow.MachineOpts{
		Pantry:           pantryStore,
		LLM:              model,
		Generator:        recipes.NewGenerator(model),
		Retriever:        retriever,
		MaxRegenerations: agentConfig.MaxRegenerations,
		Exhaustion:       policy,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create state machine", "error", err)
		return
	}

	saver, err := checkpoint.NewBadgerSaver(agentConfig.CheckpointPath)
	if err != nil {
		slog.Error("SETUP: Failed to open checkpoint store", "error", err)
		return
	}
	defer func() {
		if err := saver.Close(); err != nil {
			slog.Error("SETUP: Failed to close checkpoint store", "error", err)
		}
	}()

	var notifier recipeagent.Notifier
	if agentConfig.SlackWebhookURL != "" {
		notifier = slack.NewClient(agentConfig.SlackWebhookURL, http.DefaultClient)
	}

	_, _, otelShutdown, err := recipeagent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	session, err := flow.NewSession(flow.SessionOpts{
		ID:       argOr(1, ""),
		Machine:  machine,
		Saver:    saver,
		Logger:   logger,
		Notifier: notifier,
		Channel:  agentConfig.SlackChannel,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create session", "error", err)
		return
	}

	fmt.Println(bannerStyle.Render("recipe agent"))
	fmt.Println(hintStyle.Render("session " + session.ID() + " - type \"exit\" to quit"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		res, err := session.HandleTurn(ctx, line)
		if err != nil {
			slog.Error("TURN: Failed to handle turn", "error", err)
		}
		if agentConfig.Debug {
			recipeagent.Dump(res)
		}
		if res.Message != "" {
			fmt.Println(replyStyle.Render(res.Message))
		}
		if res.AwaitingSelection {
			fmt.Println(hintStyle.Render("(waiting for your pick)"))
		}
	}
}

// newModelClient picks the backend: OpenAI when an API key is present,
// otherwise a local Ollama server.
func newModelClient(modelConfig recipeagent.ModelConfig, agentConfig recipeagent.AgentConfig) (modelClient, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return openai.NewClient(openai.ClientOpts{
			APIKey:       key,
			ModelID:      os.Getenv("OPENAI_MODEL_ID"),
			EmbedModelID: os.Getenv("OPENAI_EMBED_MODEL_ID"),
		})
	}

	return ollama.NewClient(ollama.ClientOpts{
		BaseEndpoint: agentConfig.BaseOllamaEndpoint,
		ModelID:      modelConfig.ModelID,
		EmbedModelID: modelConfig.EmbedModelID,
		Temperature:  modelConfig.Temperature,
		TopP:         modelConfig.TopP,
		HTTPClient:   http.DefaultClient,
	})
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func newTurnLogger(modelID string) (*recipeagent.FileTurnLogger, func() error, error) {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	logFilePath := recipeagent.NewTurnLogFilePath(modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := recipeagent.NewFileTurnLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
