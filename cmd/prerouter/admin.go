package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SKDesing/aura-osint/go-preintel/internal/app"
	"github.com/SKDesing/aura-osint/go-preintel/internal/contract"
	"github.com/SKDesing/aura-osint/go-preintel/internal/embedding"
	"github.com/SKDesing/aura-osint/go-preintel/internal/logging"
)

var errUnhealthy = errors.New("unhealthy")

// #region health
type healthReport struct {
	OK                bool             `json:"ok"`
	Embedding         embedding.Health `json:"embedding"`
	CacheEntries      int              `json:"cache_entries"`
	RouterVersion     string           `json:"router_version"`
	PrototypesVersion string           `json:"prototypes_version,omitempty"`
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the embedding model and report cache status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a, err := app.BuildRouter(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			rep := healthReport{
				Embedding:     a.Embedder.HealthCheck(ctx),
				RouterVersion: a.Router.Version(),
			}
			if set := a.Router.Prototypes(); set != nil {
				rep.PrototypesVersion = set.Version
			}
			n, err := a.Store.CountEmbeddings(ctx)
			if err != nil {
				return fmt.Errorf("count cache entries: %w", err)
			}
			rep.CacheEntries = n
			rep.OK = rep.Embedding.OK

			if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if !rep.OK {
				return fmt.Errorf("%w: %s", errUnhealthy, rep.Embedding.Error)
			}
			return nil
		},
	}
}

// #endregion health

// #region cache
func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the embedding cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached embedding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a, err := app.BuildRouter(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Embedder.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d cached embeddings\n", n)
			return nil
		},
	})
	return cmd
}

// #endregion cache

// #region decisions
type decisionsReport struct {
	Stats  logging.DecisionStats     `json:"stats"`
	Recent []contract.DecisionRecord `json:"recent"`
}

func newDecisionsCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Show recent decision records and the stored bypass rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a, err := app.BuildRouter(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			stats, err := logging.Stats(ctx, a.Store.DB())
			if err != nil {
				return err
			}
			recent, err := logging.RecentDecisions(ctx, a.Store.DB(), limit)
			if err != nil {
				return err
			}
			if recent == nil {
				recent = []contract.DecisionRecord{}
			}
			return writeJSON(cmd.OutOrStdout(), decisionsReport{Stats: stats, Recent: recent})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of recent records")
	return cmd
}

// #endregion decisions
