// Command prerouter is the operator CLI for the pre-intelligence pipeline.
package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SKDesing/aura-osint/go-preintel/internal/config"
	"github.com/SKDesing/aura-osint/go-preintel/internal/logging"
)

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// #endregion main

// #region root
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "prerouter",
		Short: "Pre-intelligence routing in front of the LLM gateway",
		Long: `prerouter normalizes, prunes and routes requests, answering what it can
without a model call and recording a decision for every request.

Examples:
  prerouter route < requests.jsonl          # one DecisionRecord per line
  prerouter health                          # embedding model and cache status
  prerouter prototypes build -d labeled.jsonl -o prototypes.yaml
  prerouter decisions --limit 50            # recent records and bypass rate`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", envOr("PREINTEL_CONFIG", ""), "YAML config file")

	cmd.AddCommand(
		newRouteCmd(opts),
		newHealthCmd(opts),
		newCacheCmd(opts),
		newPrototypesCmd(opts),
		newDecisionsCmd(opts),
		newServeInferenceCmd(opts),
	)
	return cmd
}

// load reads the configuration and builds the logger, which writes to the
// command's stderr so stdout stays machine-readable.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// #endregion root

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
