// Command bench replays a labeled dataset through the router and checks the
// release gates. Exit status: 0 all gates passed, 1 a gate failed, 2 usage or
// setup error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/SKDesing/aura-osint/go-preintel/internal/app"
	"github.com/SKDesing/aura-osint/go-preintel/internal/bench"
	"github.com/SKDesing/aura-osint/go-preintel/internal/config"
	"github.com/SKDesing/aura-osint/go-preintel/internal/logging"
)

// #region main

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// #endregion main

// #region run

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	datasetPath := fs.String("dataset", "", "labeled JSON Lines dataset")
	configPath := fs.String("config", os.Getenv("PREINTEL_CONFIG"), "YAML config file")
	outPath := fs.String("out", "", "write the JSON report here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *datasetPath == "" {
		fmt.Fprintln(stderr, "usage: bench --dataset path/to/dataset.jsonl [--config preintel.yaml] [--out report.json]")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 2
	}
	samples, err := bench.LoadDataset(*datasetPath)
	if err != nil {
		fmt.Fprintf(stderr, "dataset: %v\n", err)
		return 2
	}

	a, err := app.BuildRouter(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 2
	}
	defer a.Close()

	h := bench.NewHarness(a.Router, nil)
	outcomes, err := h.Run(context.Background(), samples)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 2
	}
	rep := bench.Summarize(outcomes, cfg.Bench, h.Version())

	if err := writeReport(*outPath, stdout, rep); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return 2
	}

	fmt.Fprintf(stderr, "total=%d accuracy=%.4f bypass_rate=%.4f avg_latency_ms=%.3f p95_ms=%.3f\n",
		rep.Total, rep.Accuracy, rep.BypassRate, rep.Latency.Avg, rep.Latency.P95)
	for _, g := range rep.Gates {
		mark := "PASS"
		if !g.Pass {
			mark = "FAIL"
		}
		fmt.Fprintf(stderr, "  [%s] %s=%.4f (threshold %.4f)\n", mark, g.Name, g.Value, g.Threshold)
	}
	if !rep.Passed {
		fmt.Fprintln(stderr, rep.Reason)
		return 1
	}
	return 0
}

// #endregion run

// #region report

func writeReport(path string, stdout io.Writer, rep bench.Report) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// #endregion report
