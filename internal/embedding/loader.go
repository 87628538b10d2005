package embedding

import (
	"context"
	"fmt"

	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
)

// NewLoader returns the Loader for the model selected in config.
func NewLoader(config Config) (Loader, error) {
	switch config.Model {
	case "hashing":
		return func(context.Context) (Model, error) {
			return NewHashingModel(config.Dimension), nil
		}, nil
	case "remote":
		return func(context.Context) (Model, error) {
			client, err := codec.NewCodecClient(config.CodecAddr)
			if err != nil {
				return nil, err
			}
			return NewRemoteModel(client, 0), nil
		}, nil
	case "onnx":
		return func(context.Context) (Model, error) {
			return NewONNXModel(config.ONNX)
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, config.Model)
	}
}
