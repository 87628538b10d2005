package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SKDesing/aura-osint/go-preintel/internal/app"
	"github.com/SKDesing/aura-osint/go-preintel/internal/bench"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
)

func newPrototypesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prototypes",
		Short: "Manage router class prototypes",
	}

	var dataset, out string
	build := &cobra.Command{
		Use:   "build",
		Short: "Average labeled sample embeddings into a prototype file",
		Long: `Embed every labeled sample of a bench dataset whose expected decision is a
bypass class, average the vectors per class and write the prototype set.
Samples labeled llm or rag+llm are skipped. The file is replaced
atomically, so a router started with --watch picks it up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			samples, err := bench.LoadDataset(dataset)
			if err != nil {
				return err
			}
			// The file being rebuilt may hold a set for another model.
			cfg.Router.PrototypesPath = ""
			a, err := app.BuildRouter(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			set, err := bench.BuildPrototypes(cmd.Context(), a.Embedder, samples)
			if err != nil {
				return err
			}
			if err := router.SavePrototypes(out, set); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d prototypes (model %s, version %s) to %s\n",
				len(set.Prototypes), set.ModelID, set.Version, out)
			return nil
		},
	}
	build.Flags().StringVarP(&dataset, "dataset", "d", "", "labeled JSON Lines dataset")
	build.Flags().StringVarP(&out, "out", "o", "prototypes.yaml", "output file (.yaml or .json)")
	_ = build.MarkFlagRequired("dataset")

	cmd.AddCommand(build)
	return cmd
}
