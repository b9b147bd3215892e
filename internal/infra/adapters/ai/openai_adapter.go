package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"telegram-phone-sales/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter using the Chat Completions API.
// With a custom base URL it also serves OpenAI-compatible gateways (GigaChat proxy, Metis).
type OpenAIAdapter struct {
	name   string
	client openai.Client
	model  string
	maxOut int
}

type OpenAIOptions struct {
	Name    string // "openai" unless set
	APIKey  string
	BaseURL string // empty means api.openai.com
	Model   string
	MaxOut  int
	Timeout time.Duration
}

func NewOpenAIAdapter(o OpenAIOptions) (*OpenAIAdapter, error) {
	if o.APIKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if o.Model == "" {
		o.Model = "gpt-4o-mini"
	}
	if o.Name == "" {
		o.Name = "openai"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithMaxRetries(1),
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(o.BaseURL, "/")+"/"))
	}
	if o.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(o.Timeout))
	}
	return &OpenAIAdapter{
		name:   o.Name,
		client: openai.NewClient(opts...),
		model:  o.Model,
		maxOut: o.MaxOut,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return o.name }

// CountTokens uses the tiktoken encoding of the model (cl100k_base for unknown
// gateway models). When no encoding can be loaded it falls back to a rune estimate.
func (o *OpenAIAdapter) CountTokens(_ context.Context, model string, messages []adapter.Message) (int, error) {
	return countTokens(modelOrDefault(model, o.model), messages), nil
}

func (o *OpenAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	if len(messages) == 0 {
		return "", adapter.Usage{}, errors.New("openai: no messages")
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelOrDefault(model, o.model)),
		Messages: toOpenAIMessages(messages),
	}
	if o.maxOut > 0 {
		params.MaxTokens = openai.Int(int64(o.maxOut))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", adapter.Usage{}, err
	}
	u := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, u, nil
		}
	}
	return "", u, errors.New("no choice content")
}

func toOpenAIMessages(msgs []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant", "model":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// per-message framing overhead used by the chat format
const tokensPerMessage = 3

func countTokens(model string, messages []adapter.Message) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	total := 3
	for _, m := range messages {
		total += tokensPerMessage
		if err != nil {
			total += estimateTokens(m.Role) + estimateTokens(m.Content)
			continue
		}
		total += len(enc.Encode(m.Role, nil, nil)) + len(enc.Encode(m.Content, nil, nil))
	}
	return total
}

// estimateTokens is a rough upper bound for Cyrillic-heavy text.
func estimateTokens(s string) int {
	n := len([]rune(s))
	return (n + 1) / 2
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
