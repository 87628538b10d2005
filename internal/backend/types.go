// Package backend wraps the model services a routed request can be sent to.
package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid backend config")

// #region types
// GenerateRequest is a routed model call.
type GenerateRequest struct {
	Prompt    string
	Context   string // assembled (pruned + retrieved) context, may be empty
	Decision  string // routing decision that selected the handler
	MaxTokens int
}

// Model identifies the model that produced a response.
type Model struct {
	Alias string `json:"alias"`
	Base  string `json:"base"`
	Hash  string `json:"hash"`
}

// GenerateResponse is the model output.
type GenerateResponse struct {
	Text         string
	Data         map[string]any
	InputTokens  int
	OutputTokens int
	Model        Model
}

// Backend generates a completion for a routed request.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// #endregion types

// #region config
// Config selects and parameterizes the model backend.
type Config struct {
	Provider     string        `yaml:"provider" json:"provider"` // none | anthropic | openai | grpc
	Alias        string        `yaml:"alias" json:"alias"`
	Model        string        `yaml:"model" json:"model"`
	APIKey       string        `yaml:"-" json:"-"`
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig has no backend; model paths fail until one is configured.
func DefaultConfig() Config {
	return Config{
		Provider:     "none",
		Alias:        "default",
		MaxTokens:    1024,
		SystemPrompt: "You are an OSINT analysis assistant. Answer from the supplied context when it is relevant and say when it is not.",
		Timeout:      60 * time.Second,
	}
}

// Validate checks provider-specific requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Provider {
	case "none", "grpc":
	case "anthropic", "openai":
		if c.APIKey == "" {
			errs = append(errs, fmt.Errorf("%w: %s provider needs an API key", ErrInvalidConfig, c.Provider))
		}
		if c.Model == "" {
			errs = append(errs, fmt.Errorf("%w: %s provider needs a model", ErrInvalidConfig, c.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_tokens must be > 0", ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be >= 0", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// #endregion config

// #region helpers
// ModelHash is a short content hash of provider and base model, used when the
// service does not report its own.
func ModelHash(provider, base string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + base))
	return hex.EncodeToString(sum[:])[:12]
}

// userMessage places the context ahead of the request.
func userMessage(req GenerateRequest) string {
	if req.Context == "" {
		return req.Prompt
	}
	return "Context:\n" + req.Context + "\n\nRequest:\n" + req.Prompt
}

func maxTokens(req GenerateRequest, fallback int) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return fallback
}

// #endregion helpers
