package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are a marketing copywriter. Output only the requested content, no explanations."

// OpenAI implements Client using the official openai-go SDK (chat completions).
type OpenAI struct {
	model   string
	opts    []option.RequestOption
	timeout time.Duration
}

// NewOpenAI builds a client from Settings. The API key and model are required.
func NewOpenAI(cfg Settings) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{model: cfg.Model, opts: opts, timeout: cfg.Timeout}, nil
}

// Generate issues one chat completion and maps provider failures to the
// package taxonomy.
func (o *OpenAI) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	client := openai.NewClient(o.opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrUnavailable)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: output filtered", ErrRejected)
	}
	return choice.Message.Content, nil
}

// classify maps SDK errors to the stable taxonomy. The provider message is
// preserved in the wrap chain for logs but callers match on the sentinel.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 400, 403, 422:
			return fmt.Errorf("%w: status %d", ErrRejected, apierr.StatusCode)
		default:
			return fmt.Errorf("%w: status %d", ErrUnavailable, apierr.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
