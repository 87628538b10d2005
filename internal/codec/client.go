// Package codec is the gRPC boundary to the remote inference and guardrail
// services. Requests and responses are google.protobuf.Struct messages.
package codec

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrEmptyEmbedding is returned when the service answers Embed with no values.
var ErrEmptyEmbedding = errors.New("empty embedding")

// #region client-struct
// CodecClient wraps the gRPC connection to the inference service.
type CodecClient struct {
	conn *grpc.ClientConn // nil when built over an injected connection
	cc   grpc.ClientConnInterface
}
// #endregion client-struct

// #region constructor
// NewCodecClient connects to the inference gRPC server. The connection is
// lazy; the first call dials.
func NewCodecClient(addr string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{conn: conn, cc: conn}, nil
}

// NewCodecClientWithConn creates a CodecClient over an existing connection.
// The caller keeps ownership of cc.
func NewCodecClientWithConn(cc grpc.ClientConnInterface) *CodecClient {
	return &CodecClient{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns it.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

func (c *CodecClient) invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// #region embed
// Embed sends text to the inference service for embedding.
func (c *CodecClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.invoke(ctx, methodEmbed, encodeEmbedRequest(text))
	if err != nil {
		return nil, fmt.Errorf("embed rpc: %w", err)
	}
	vec := decodeEmbedResponse(resp)
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed rpc: %w", ErrEmptyEmbedding)
	}
	return vec, nil
}
// #endregion embed

// #region generate
// Generate sends the prompt and assembled context to the inference service.
func (c *CodecClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	resp, err := c.invoke(ctx, methodGenerate, encodeGenerateRequest(req))
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generate rpc: %w", err)
	}
	return decodeGenerateResponse(resp), nil
}
// #endregion generate

// #region search
// Search queries the evidence store behind the inference service.
func (c *CodecClient) Search(ctx context.Context, queryText string, topK int, similarityThreshold float32) ([]SearchResult, error) {
	resp, err := c.invoke(ctx, methodSearch, encodeSearchRequest(queryText, topK, similarityThreshold))
	if err != nil {
		return nil, fmt.Errorf("search rpc: %w", err)
	}
	return decodeSearchResponse(resp), nil
}
// #endregion search

// #region check
// Check asks the guardrail service for a verdict on the pre- and
// post-pruning text.
func (c *CodecClient) Check(ctx context.Context, pre, post string) (CheckResult, error) {
	resp, err := c.invoke(ctx, methodCheck, encodeCheckRequest(pre, post))
	if err != nil {
		return CheckResult{}, fmt.Errorf("check rpc: %w", err)
	}
	return decodeCheckResponse(resp), nil
}
// #endregion check
