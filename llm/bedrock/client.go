package bedrock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"recipeagent"
)

const (
	// defaultModelID is an inference profile ID or ARN, not the foundation
	// model's ID. See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	defaultMaxTokens = 2048

	// Low temperature keeps the structured-output prompts (intent, constraints,
	// recipe JSON) more deterministic.
	defaultTemperature = 0.2

	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type ClientOpts struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// Client implements the model contract against the Bedrock Converse API.
type Client struct {
	brc  bedrockRuntimeClient
	opts ClientOpts
}

func NewClient(brc bedrockRuntimeClient, opts ClientOpts) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Client{brc: brc, opts: opts}
}

// Complete sends the system prompt and conversation to Bedrock and returns the
// assistant text.
func (c *Client) Complete(ctx context.Context, system string, msgs []recipeagent.ChatMessage) (string, error) {
	slog.Debug("LLM_CLIENT: Invoked", "messages_len", len(msgs))

	var sys []types.SystemContentBlock
	if system != "" {
		sys = append(sys, &types.SystemContentBlockMemberText{Value: system})
	}

	var messages []types.Message
	for _, m := range msgs {
		role := types.ConversationRoleUser
		if m.Role == recipeagent.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  &c.opts.ModelID,
		System:   sys,
		Messages: messages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		return "", fmt.Errorf("bedrock converse failed: %w", err)
	}

	slog.Debug("LLM_CLIENT: Bedrock invoke succeeded",
		"stop_reason", out.StopReason,
		"input_tokens", aws.ToInt32(out.Usage.InputTokens),
		"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
	)

	switch out.StopReason {
	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		return textFromOutput(out), nil

	case types.StopReasonMaxTokens:
		return "", fmt.Errorf("model hit MaxTokens limit; consider increasing MaxTokens")

	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		return "", fmt.Errorf("model response blocked by Bedrock safety filters")

	default:
		return textFromOutput(out), nil
	}
}

// textFromOutput joins the assistant's text blocks.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	return strings.Join(texts, "\n")
}
