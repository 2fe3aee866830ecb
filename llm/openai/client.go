package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"recipeagent"
)

// Client implements the model contract against the OpenAI chat API, plus
// embeddings for the retriever's semantic fallback.
type Client struct {
	client     *openai.Client
	model      string
	embedModel openai.EmbeddingModel
}

type ClientOpts struct {
	APIKey       string
	ModelID      string
	EmbedModelID string
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if opts.ModelID == "" {
		opts.ModelID = openai.GPT4oMini
	}
	embedModel := openai.EmbeddingModel(opts.EmbedModelID)
	if opts.EmbedModelID == "" {
		embedModel = openai.SmallEmbedding3
	}
	return &Client{
		client:     openai.NewClient(opts.APIKey),
		model:      opts.ModelID,
		embedModel: embedModel,
	}, nil
}

// Complete sends the system prompt and conversation to OpenAI and returns the
// first choice's text.
func (c *Client) Complete(ctx context.Context, system string, msgs []recipeagent.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == recipeagent.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	slog.Debug("LLM_CLIENT: OpenAI response", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embedModel,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings call failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("OpenAI returned no embeddings")
	}
	return resp.Data[0].Embedding, nil
}
