package policy

import (
	"context"
	"fmt"

	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
)

// RemoteGuard delegates to the Guardrail/Check RPC.
type RemoteGuard struct {
	client *codec.CodecClient
}

// NewRemoteGuard wraps a codec client.
func NewRemoteGuard(client *codec.CodecClient) *RemoteGuard {
	return &RemoteGuard{client: client}
}

// Check forwards the input and maps the service verdict.
func (g *RemoteGuard) Check(ctx context.Context, in Input) (Verdict, error) {
	res, err := g.client.Check(ctx, in.Pre, in.Post)
	if err != nil {
		return Verdict{}, fmt.Errorf("guardrail check: %w", err)
	}
	return Verdict{
		Blocked:        res.Blocked,
		RulesTriggered: res.RulesTriggered,
		Version:        res.Version,
	}, nil
}

// New builds the guard selected by config.Mode; "none" yields a nil Guard.
func New(config Config, client *codec.CodecClient) (Guard, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Mode {
	case "lexicon":
		g, err := NewLexiconGuard(config)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "remote":
		if client == nil {
			return nil, fmt.Errorf("%w: remote mode needs a codec client", ErrInvalidConfig)
		}
		return NewRemoteGuard(client), nil
	default:
		return nil, nil
	}
}
