package embedding

import (
	"context"
	"sync/atomic"

	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
)

// #region remote-model
// RemoteModel embeds through the inference service's Embed RPC.
type RemoteModel struct {
	client *codec.CodecClient
	dim    atomic.Int64
}

// NewRemoteModel wraps client. The model owns the client and closes it on
// Close. A non-zero dim pins the expected width; otherwise the width is
// learned from the first response.
func NewRemoteModel(client *codec.CodecClient, dim int) *RemoteModel {
	m := &RemoteModel{client: client}
	m.dim.Store(int64(dim))
	return m
}

// Embed calls the remote service.
func (m *RemoteModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := m.client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.dim.CompareAndSwap(0, int64(len(vec)))
	return vec, nil
}

// Dimension returns the pinned or learned width.
func (m *RemoteModel) Dimension() int { return int(m.dim.Load()) }

// Close closes the gRPC connection.
func (m *RemoteModel) Close() error { return m.client.Close() }

// #endregion remote-model
