package backend

import (
	"context"
	"fmt"

	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
)

// GRPC calls Inference/Generate on the codec service.
type GRPC struct {
	client *codec.CodecClient
	config Config
}

// NewGRPC wraps a codec client.
func NewGRPC(client *codec.CodecClient, config Config) (*GRPC, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: grpc provider needs a codec client", ErrInvalidConfig)
	}
	return &GRPC{client: client, config: config}, nil
}

// Generate forwards prompt and context; the service may report its own model
// identity, otherwise the configured alias and model are used.
func (g *GRPC) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	res, err := g.client.Generate(ctx, codec.GenerateRequest{
		Prompt:    req.Prompt,
		Context:   req.Context,
		Decision:  req.Decision,
		MaxTokens: maxTokens(req, g.config.MaxTokens),
	})
	if err != nil {
		return GenerateResponse{}, err
	}

	m := Model{Alias: res.ModelAlias, Base: res.ModelBase, Hash: res.ModelHash}
	if m.Alias == "" {
		m.Alias = g.config.Alias
	}
	if m.Base == "" {
		m.Base = g.config.Model
	}
	if m.Hash == "" {
		m.Hash = ModelHash("grpc", m.Base)
	}
	return GenerateResponse{
		Text:         res.Text,
		Data:         res.Data,
		OutputTokens: res.OutputTokens,
		Model:        m,
	}, nil
}

// New builds the backend selected by config.Provider; "none" yields nil.
func New(config Config, client *codec.CodecClient) (Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	var (
		b   Backend
		err error
	)
	switch config.Provider {
	case "anthropic":
		b, err = NewAnthropic(config)
	case "openai":
		b, err = NewOpenAI(config)
	case "grpc":
		b, err = NewGRPC(client, config)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
