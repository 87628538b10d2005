// Package codectest runs codec services over an in-memory bufconn listener
// for tests.
package codectest

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
)

const bufSize = 1 << 20

// Serve starts a gRPC server with the given services (either may be nil) and
// returns a client connected to it. Everything is torn down on test cleanup.
func Serve(t testing.TB, inference codec.InferenceService, guardrail codec.GuardrailService) *codec.CodecClient {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	if inference != nil {
		codec.RegisterInference(srv, inference)
	}
	if guardrail != nil {
		codec.RegisterGuardrail(srv, guardrail)
	}
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("bufconn dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
	})
	return codec.NewCodecClientWithConn(conn)
}
