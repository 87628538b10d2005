package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SKDesing/aura-osint/go-preintel/internal/app"
)

func newServeInferenceCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-inference",
		Short: "Serve Embed, Search and Check over gRPC from local components",
		Long: `Run the preintel.v1.Inference (Embed, Search) and preintel.v1.Guardrail
(Check) services backed by the configured local embedding model, bleve
corpus and lexicon guard. Generate is not served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.ServeLocal(ctx, lis, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("PREINTEL_CODEC_ADDR", "localhost:50051"), "listen address")
	return cmd
}
