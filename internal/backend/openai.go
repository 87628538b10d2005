package backend

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAI calls the Responses API.
type OpenAI struct {
	client *openai.Client
	config Config
}

// NewOpenAI builds an OpenAI backend with SDK retries disabled.
func NewOpenAI(config Config) (*OpenAI, error) {
	config.Provider = "openai"
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
	client := openai.NewClient(opts...)
	return &OpenAI{client: &client, config: config}, nil
}

// Generate sends the system prompt and one user message.
func (o *OpenAI) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	input := make(responses.ResponseInputParam, 0, 2)
	if o.config.SystemPrompt != "" {
		input = append(input, responses.ResponseInputItemParamOfMessage(o.config.SystemPrompt, responses.EasyInputMessageRoleSystem))
	}
	input = append(input, responses.ResponseInputItemParamOfMessage(userMessage(req), responses.EasyInputMessageRoleUser))

	params := responses.ResponseNewParams{
		Model:           shared.ResponsesModel(o.config.Model),
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		MaxOutputTokens: openai.Int(int64(maxTokens(req, o.config.MaxTokens))),
	}

	result, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("openai generate: %w", err)
	}

	base := string(result.Model)
	if base == "" {
		base = o.config.Model
	}
	return GenerateResponse{
		Text:         result.OutputText(),
		InputTokens:  int(result.Usage.InputTokens),
		OutputTokens: int(result.Usage.OutputTokens),
		Model:        Model{Alias: o.config.Alias, Base: base, Hash: ModelHash("openai", base)},
	}, nil
}
