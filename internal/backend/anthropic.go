package backend

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic calls the Messages API.
type Anthropic struct {
	client *anthropic.Client
	config Config
}

// NewAnthropic builds an Anthropic backend. SDK retries are disabled; the
// pipeline applies its own retry policy.
func NewAnthropic(config Config) (*Anthropic, error) {
	config.Provider = "anthropic"
	if err := config.Validate(); err != nil {
		return nil, err
	}
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &Anthropic{client: &client, config: config}, nil
}

// Generate sends one user turn and concatenates the text blocks of the reply.
func (a *Anthropic) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: int64(maxTokens(req, a.config.MaxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage(req))),
		},
	}
	if a.config.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.config.SystemPrompt}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("anthropic generate: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += b.Text
		}
	}
	base := string(msg.Model)
	if base == "" {
		base = a.config.Model
	}
	return GenerateResponse{
		Text:         text,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Model:        Model{Alias: a.config.Alias, Base: base, Hash: ModelHash("anthropic", base)},
	}, nil
}
