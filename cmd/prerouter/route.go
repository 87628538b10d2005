package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SKDesing/aura-osint/go-preintel/internal/app"
	"github.com/SKDesing/aura-osint/go-preintel/internal/contract"
	"github.com/SKDesing/aura-osint/go-preintel/internal/pipeline"
)

const maxRequestBytes = 8 << 20

func newRouteCmd(opts *rootOptions) *cobra.Command {
	var (
		input string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Route JSON request lines and print decision records",
		Long: `Read one JSON request per line ({"id", "text", "prompt", "hint",
"max_context_chars"}) from --input or stdin and write one DecisionRecord
JSON line per request to stdout. A malformed line, or one over 8 MiB,
yields an error record and processing continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a, err := app.Build(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if watch {
				go func() {
					if err := a.WatchPrototypes(ctx); err != nil {
						logger.Warn("prototype watch stopped", "err", err)
					}
				}()
			}

			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}
			return routeLines(ctx, a.Pipeline, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "request file (default stdin)")
	cmd.Flags().BoolVar(&watch, "watch", false, "hot-reload the prototype file while routing")
	return cmd
}

// errRequestTooLarge marks a line longer than maxRequestBytes. The line is
// skipped, not decoded.
var errRequestTooLarge = fmt.Errorf("request line exceeds %d bytes", maxRequestBytes)

// routeLines processes requests in input order until EOF or cancellation.
// Every non-blank line yields exactly one record.
func routeLines(ctx context.Context, p *pipeline.Pipeline, in io.Reader, out io.Writer) error {
	r := bufio.NewReaderSize(in, 64*1024)
	enc := json.NewEncoder(out)
	builder := contract.NewBuilder(time.Now)

	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, tooLong, err := readLine(r, maxRequestBytes)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read requests: %w", err)
		}
		line++
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 && !tooLong {
			continue
		}

		id := fmt.Sprintf("line-%d", line)
		var req pipeline.Request
		var rec contract.DecisionRecord
		if tooLong {
			rec = builder.ErrorRecord(id, errRequestTooLarge, 0)
		} else if err := json.Unmarshal(raw, &req); err != nil {
			rec = builder.ErrorRecord(id, fmt.Errorf("decode request: %w", err), 0)
		} else {
			rec = p.Process(ctx, req)
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed in full and reported as tooLong with no content.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}
