package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SKDesing/aura-osint/go-preintel/internal/backend"
	"github.com/SKDesing/aura-osint/go-preintel/internal/contract"
	"github.com/SKDesing/aura-osint/go-preintel/internal/logging"
	"github.com/SKDesing/aura-osint/go-preintel/internal/policy"
	"github.com/SKDesing/aura-osint/go-preintel/internal/prune"
	"github.com/SKDesing/aura-osint/go-preintel/internal/retrieval"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
	"github.com/SKDesing/aura-osint/go-preintel/internal/textnorm"
)

// #region pipeline
// Pipeline is safe for concurrent use; it holds no per-request state.
type Pipeline struct {
	deps    Deps
	builder *contract.Builder
	logger  *slog.Logger
}

// New validates deps and returns a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	if deps.Segmenter == nil || deps.Pruner == nil || deps.Router == nil {
		return nil, fmt.Errorf("%w: segmenter, pruner and router are required", ErrInvalidConfig)
	}
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = DefaultRetryPolicy()
	}
	if err := deps.Retry.Validate(); err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		deps:    deps,
		builder: contract.NewBuilder(deps.Now),
		logger:  logger.With("component", "pipeline"),
	}, nil
}

// #endregion pipeline

// #region process
// routed is what the routing branch hands back to Process.
type routed struct {
	gate  *retrieval.GateResult
	route router.Result
}

// Process runs req end to end. It never returns a Go error: every failure
// becomes a status=error record.
func (p *Pipeline) Process(ctx context.Context, req Request) contract.DecisionRecord {
	start := p.deps.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	rec, err := p.process(ctx, req, start)
	if err != nil {
		rec = p.builder.ErrorRecord(req.ID, err, p.deps.Now().Sub(start))
	}
	p.record(ctx, req, rec)
	return rec
}

func (p *Pipeline) process(ctx context.Context, req Request, start time.Time) (contract.DecisionRecord, error) {
	// Pre-intelligence: segment, fingerprint, prune, assemble.
	split := p.deps.Segmenter.Split(req.Text)
	kept, stats := p.deps.Pruner.WithBudget(req.MaxContextChars).Run(split.Segments)
	assembled := prune.Assemble(kept)
	prompt := textnorm.Normalize(req.Prompt)
	normalized := joinBlocks(prompt, textnorm.Normalize(req.Text))

	p.logger.Debug("pruned",
		"request_id", req.ID,
		"segments", len(split.Segments),
		"truncated", split.Truncated,
		"kept", stats.Kept,
		"dropped_similar", stats.DroppedSimilar,
		"dropped_limit", stats.DroppedLimit,
		"tokens_saved", stats.EstTokensSaved,
	)

	// Guardrail runs alongside retrieval and routing.
	var (
		verdict = policy.Verdict{Version: "none"}
		r       routed
	)
	g, gctx := errgroup.WithContext(ctx)
	if p.deps.Guard != nil {
		g.Go(func() error {
			v, res := Call(gctx, p.deps.Retry, func(ctx context.Context) (policy.Verdict, error) {
				return p.deps.Guard.Check(ctx, policy.Input{Pre: normalized, Post: assembled})
			})
			if res.Failed() {
				return fmt.Errorf("guardrail: %w", res.Error())
			}
			verdict = v
			return nil
		})
	}
	g.Go(func() error {
		r = p.route(gctx, req.ID, prompt, assembled)
		return nil
	})
	if err := g.Wait(); err != nil {
		return contract.DecisionRecord{}, err
	}

	in := contract.Inputs{
		RequestID:      req.ID,
		NormalizedText: normalized,
		Segments:       len(split.Segments),
		Truncated:      split.Truncated,
		Prune:          stats,
		Route:          r.route,
		Retrieval:      r.gate,
		Policy:         verdict,
	}

	switch {
	case verdict.Blocked:
		// No handler runs for a blocked request.
	case r.route.Decision.IsBypass():
		in.OutputData = extract(r.route, p.deps.Router.Extractor(), joinBlocks(prompt, assembled))
		in.Model = backend.Model{
			Alias: "pre-intel",
			Base:  "extractor/" + string(r.route.Decision),
			Hash:  backend.ModelHash("extractor", string(r.route.Decision)),
		}
	default:
		resp, err := p.generate(ctx, prompt, assembled, r)
		if err != nil {
			return contract.DecisionRecord{}, err
		}
		in.Model = resp.Model
		in.OutputText = resp.Text
		in.OutputData = resp.Data
		in.InputTokens = resp.InputTokens
		in.OutputTokens = resp.OutputTokens
	}
	if in.InputTokens == 0 {
		in.InputTokens = p.estimateTokens(joinBlocks(prompt, assembled))
	}
	in.Latency = p.deps.Now().Sub(start)

	return p.builder.Build(in)
}

// route runs retrieval (when configured) and the classifier. Retrieval
// failures are logged and routing continues without evidence.
func (p *Pipeline) route(ctx context.Context, id, prompt, assembled string) routed {
	var out routed
	query := prompt
	if query == "" {
		query = assembled
	}

	if p.deps.Retriever != nil {
		gate, err := p.deps.Retriever.Retrieve(ctx, query)
		if err != nil {
			p.logger.Warn("retrieval failed, routing without evidence", "request_id", id, "err", err)
		} else {
			out.gate = &gate
		}
	}

	out.route = p.deps.Router.Classify(ctx, router.Input{
		Text:         joinBlocks(prompt, assembled),
		EmbedText:    query,
		HasRetrieval: out.gate != nil && out.gate.Used(),
	})
	if out.route.Degraded {
		p.logger.Warn("route degraded", "request_id", id, "decision", out.route.Decision)
	}
	return out
}

// generate calls the backend for a model-path decision. rag+llm appends the
// retrieved evidence to the pruned context.
func (p *Pipeline) generate(ctx context.Context, prompt, assembled string, r routed) (backend.GenerateResponse, error) {
	if p.deps.Backend == nil {
		return backend.GenerateResponse{}, ErrNoBackend
	}
	req := backend.GenerateRequest{Prompt: prompt, Context: assembled, Decision: string(r.route.Decision)}
	if req.Prompt == "" {
		req.Prompt, req.Context = assembled, ""
	}
	if r.route.Decision == router.DecisionRAGLLM && r.gate != nil {
		req.Context = joinBlocks(req.Context, r.gate.Context)
	}

	resp, res := Call(ctx, p.deps.Retry, func(ctx context.Context) (backend.GenerateResponse, error) {
		return p.deps.Backend.Generate(ctx, req)
	})
	if res.Failed() {
		return backend.GenerateResponse{}, fmt.Errorf("backend: %w", res.Error())
	}
	return resp, nil
}

// #endregion process

// #region record
// record logs the decision and appends it to the decision log.
func (p *Pipeline) record(ctx context.Context, req Request, rec contract.DecisionRecord) {
	attrs := []any{
		"request_id", rec.RequestID,
		"status", rec.Status,
		"decision", rec.Routing.Decision,
		"confidence", rec.Routing.Confidence,
		"blocked", rec.Policy.Blocked,
		"trace_hash", rec.TraceHash,
		"latency_ms", rec.LatencyMs,
	}
	if req.Hint != "" {
		attrs = append(attrs, "hint", req.Hint)
	}
	if rec.Status == contract.StatusError {
		p.logger.Error("request failed", append(attrs, "err", rec.Error)...)
	} else {
		p.logger.Info("decision", attrs...)
	}

	if p.deps.DecisionLog == nil {
		return
	}
	// The caller may have gone away; the audit row is still written.
	if err := logging.LogDecision(context.WithoutCancel(ctx), p.deps.DecisionLog, rec); err != nil {
		p.logger.Warn("decision log write failed", "request_id", rec.RequestID, "err", err)
	}
}

// #endregion record

// #region helpers
func joinBlocks(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "\n\n" + b
}

func (p *Pipeline) estimateTokens(s string) int {
	cpt := p.deps.Pruner.Config().CharsPerToken
	if cpt <= 0 {
		return 0
	}
	return utf8.RuneCountInString(s) / cpt
}

// #endregion helpers
