package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"recipeagent"
	"recipeagent/checkpoint"
	"recipeagent/flow"
	"recipeagent/llm/bedrock"
	"recipeagent/pantry"
	"recipeagent/recipes"
	"recipeagent/storage"
)

// Params is one user turn. SessionID keys the checkpoint, so consecutive
// invocations with the same id continue the same conversation - including
// resuming at the selection prompt.
type Params struct {
	SessionID string `json:"session_id"`
	Utterance string `json:"utterance"`
}

type Results struct {
	SessionID         string `json:"session_id"`
	Message           string `json:"message"`
	AwaitingSelection bool   `json:"awaiting_selection"`
	Completed         bool   `json:"completed"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		if params.Utterance == "" {
			return Results{}, fmt.Errorf("utterance is required")
		}

		var modelConfig recipeagent.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var agentConfig recipeagent.AgentConfig
		if err := envdecode.Decode(&agentConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		s3Bucket := os.Getenv("ARTIFACTS_S3_BUCKET")
		pantryKey := os.Getenv("ARTIFACTS_PANTRY_S3_KEY")
		corpusKey := os.Getenv("ARTIFACTS_CORPUS_S3_KEY")
		checkpointPrefix := os.Getenv("CHECKPOINTS_S3_PREFIX")
		if s3Bucket == "" || pantryKey == "" || corpusKey == "" {
			return Results{}, fmt.Errorf("missing S3 config: ARTIFACTS_S3_BUCKET, ARTIFACTS_PANTRY_S3_KEY, ARTIFACTS_CORPUS_S3_KEY must be set")
		}
		if checkpointPrefix == "" {
			checkpointPrefix = "checkpoints"
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRetryMaxAttempts(5))
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)

		pantryStore := pantry.NewStore(storage.NewS3State(s3Client, s3Bucket, pantryKey))
		corpus := recipes.NewCorpus(storage.NewS3State(s3Client, s3Bucket, corpusKey))
		saver := checkpoint.NewS3Saver(s3Client, s3Bucket, checkpointPrefix)
		slog.Info("SETUP: S3 pantry, corpus and checkpoint state initialized", "bucket", s3Bucket)

		model := bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.ClientOpts{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
		})

		// No embedder on Bedrock; cookbook search still works off ingredient
		// overlap whenever the pantry is non-empty.
		retriever, err := recipes.NewRetriever(corpus, nil)
		if err != nil {
			return Results{}, fmt.Errorf("failed to create retriever: %w", err)
		}

		policy, err := flow.ParseExhaustionPolicy(agentConfig.ExhaustionPolicy)
		if err != nil {
			return Results{}, err
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
			return Results{}, err
		}

		session, err := flow.NewSession(flow.SessionOpts{
			ID:      params.SessionID,
			Machine: machine,
			Saver:   saver,
			Logger:  recipeagent.NewStdoutTurnLogger(),
		})
		if err != nil {
			return Results{}, err
		}

		res, err := session.HandleTurn(ctx, params.Utterance)
		if err != nil {
			slog.Error("RESULT: Error handling turn", "session_id", session.ID(), "error", err)
			return Results{}, err
		}

		return Results{
			SessionID:         session.ID(),
			Message:           res.Message,
			AwaitingSelection: res.AwaitingSelection,
			Completed:         res.Completed,
		}, nil
	}

	lambda.Start(fn)
}
