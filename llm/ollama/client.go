package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"recipeagent"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

// Client talks to a local Ollama server: /api/chat for completions and
// /api/embeddings for the retriever's semantic fallback.
type Client struct {
	chatEndpoint  string
	embedEndpoint string
	model         string
	embedModel    string
	httpClient    recipeagent.HTTPClient
	options       options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	EmbedModelID string
	Temperature  float32
	TopP         float32
	HTTPClient   recipeagent.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.ModelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	temperature := float64(opts.Temperature)
	if temperature == 0 {
		temperature = 0.7
	}
	topP := float64(opts.TopP)
	if topP == 0 {
		topP = 0.9
	}

	return &Client{
		model:         opts.ModelID,
		embedModel:    opts.EmbedModelID,
		httpClient:    opts.HTTPClient,
		chatEndpoint:  opts.BaseEndpoint + "/api/chat",
		embedEndpoint: opts.BaseEndpoint + "/api/embeddings",
		options: options{
			Temperature:   temperature,
			TopP:          topP,
			RepeatPenalty: 1.05,
			NumCtx:        16384,
		},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireChatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

type wireChatResponse struct {
	Message wireMessage `json:"message"`
	// other metadata omitted but available
}

// Complete sends the system prompt and conversation to the Ollama chat API
// and returns the model's text verbatim. Parsing is the caller's job.
func (c *Client) Complete(ctx context.Context, system string, msgs []recipeagent.ChatMessage) (string, error) {
	slog.Debug("LLM_CLIENT: Invoked", "messages_len", len(msgs))

	messages := make([]wireMessage, 0, len(msgs)+1)
	if sp := strings.TrimSpace(system); sp != "" {
		messages = append(messages, wireMessage{Role: recipeagent.RoleSystem, Content: sp})
	}
	for _, m := range msgs {
		switch m.Role {
		case recipeagent.RoleUser, recipeagent.RoleAssistant:
			messages = append(messages, wireMessage{Role: m.Role, Content: m.Content})
		case recipeagent.RoleSystem:
			// The system prompt is passed separately; skip embedded system blocks.
			continue
		default:
			slog.Warn("ollama: unknown role, coercing to user", "role", m.Role)
			messages = append(messages, wireMessage{Role: recipeagent.RoleUser, Content: m.Content})
		}
	}

	reqBody := wireChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  c.options,
	}

	body, err := c.post(ctx, c.chatEndpoint, reqBody)
	if err != nil {
		return "", err
	}

	var wr wireChatResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw", "err", err, "body", string(body))
		return string(body), nil
	}
	return wr.Message.Content, nil
}

type wireEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type wireEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for text using the configured embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embedModel == "" {
		return nil, fmt.Errorf("no embedding model configured")
	}

	body, err := c.post(ctx, c.embedEndpoint, wireEmbedRequest{Model: c.embedModel, Prompt: text})
	if err != nil {
		return nil, err
	}

	var wr wireEmbedResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(wr.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned for model %q", c.embedModel)
	}
	return wr.Embedding, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(body))
	}
	return body, nil
}
