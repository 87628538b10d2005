// Package embedding provides the cached, lazily initialized embedding
// provider shared by every request.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/SKDesing/aura-osint/go-preintel/internal/store"
)

// #region provider
// Provider embeds text through an in-memory LRU, an optional persistent
// sqlite tier, and finally the model. It is constructed once per process and
// passed to its users.
type Provider struct {
	config  Config
	modelID string
	load    Loader
	persist *store.Store // nil disables the persistent tier
	mem     *lru.Cache[string, []float32]
	group   singleflight.Group
	sem     *semaphore.Weighted
	logger  *slog.Logger

	mu    sync.Mutex // guards model initialization and shutdown
	model Model

	// inflight is read-held across every use of the model; Close takes it
	// exclusively so the model is never released under a running call.
	inflight sync.RWMutex

	modelCalls atomic.Int64
}

// NewProvider validates the limits in config and returns a provider. The
// model is not loaded until first use.
func NewProvider(config Config, load Loader, persist *store.Store, logger *slog.Logger) (*Provider, error) {
	if load == nil {
		return nil, fmt.Errorf("%w: nil loader", ErrInvalidConfig)
	}
	if config.MaxInFlight <= 0 || config.BatchSize <= 0 || config.Timeout <= 0 || config.LRUSize <= 0 {
		return nil, fmt.Errorf("%w: max_in_flight, batch_size, timeout and lru_size must be > 0", ErrInvalidConfig)
	}
	mem, err := lru.New[string, []float32](config.LRUSize)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{
		config:  config,
		modelID: config.ResolvedModelID(),
		load:    load,
		persist: persist,
		mem:     mem,
		sem:     semaphore.NewWeighted(int64(config.MaxInFlight)),
		logger:  logger.With("component", "embedding"),
	}, nil
}

// ModelID returns the identity used in cache keys.
func (p *Provider) ModelID() string { return p.modelID }

// ModelCalls returns how many times the underlying model was invoked.
func (p *Provider) ModelCalls() int64 { return p.modelCalls.Load() }

// Dimension returns the model's output width, or 0 before the model loads.
func (p *Provider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return 0
	}
	return p.model.Dimension()
}

// #endregion provider

// #region init
// ensureModel loads the model once. Concurrent first callers block on the
// mutex and observe the same instance; a failed load leaves the provider
// uninitialized so the next caller retries.
func (p *Provider) ensureModel(ctx context.Context) (Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return p.model, nil
	}
	m, err := p.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", p.modelID, err)
	}
	p.model = m
	p.logger.Info("embedding model loaded", "model_id", p.modelID, "dim", m.Dimension())
	return m, nil
}

// invoke runs one bounded model call. The caller holds inflight.
func (p *Provider) invoke(ctx context.Context, m Model, text string) ([]float32, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire model slot: %w", err)
	}
	defer p.sem.Release(1)

	p.modelCalls.Add(1)
	vec, err := m.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if err := validVector(vec, m.Dimension()); err != nil {
		return nil, err
	}
	return vec, nil
}

func validVector(vec []float32, dim int) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidVector)
	}
	if dim > 0 && len(vec) != dim {
		return fmt.Errorf("%w: got %d values, model dimension is %d", ErrInvalidVector, len(vec), dim)
	}
	for i, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: non-finite value at %d", ErrInvalidVector, i)
		}
	}
	return nil
}

// #endregion init

// #region embed
type computed struct {
	vec []float32
	hit bool
}

// Embed returns the vector for text. Concurrent misses for the same text
// share a single computation. The computation runs detached from ctx: if the
// caller gives up, Embed returns ctx.Err() while the work still completes and
// fills both cache tiers.
func (p *Provider) Embed(ctx context.Context, text string) (Result, error) {
	key := CacheKey(p.modelID, text)
	if vec, ok := p.mem.Get(key); ok {
		return Result{Vector: slices.Clone(vec), CacheHit: true}, nil
	}

	ch := p.group.DoChan(key, func() (any, error) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.Timeout)
		defer cancel()
		return p.compute(dctx, key, text)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		c := r.Val.(computed)
		return Result{Vector: slices.Clone(c.vec), CacheHit: c.hit}, nil
	}
}

// compute loads the model before consulting the persistent tier, so stored
// rows are checked against the width the model actually produces.
func (p *Provider) compute(ctx context.Context, key, text string) (computed, error) {
	p.inflight.RLock()
	defer p.inflight.RUnlock()

	m, err := p.ensureModel(ctx)
	if err != nil {
		return computed{}, err
	}
	if vec, ok := p.readPersistent(ctx, key, m.Dimension()); ok {
		p.mem.Add(key, vec)
		return computed{vec: vec, hit: true}, nil
	}

	vec, err := p.invoke(ctx, m, text)
	if err != nil {
		return computed{}, err
	}
	p.mem.Add(key, vec)
	p.writePersistent(ctx, key, vec)
	return computed{vec: vec}, nil
}

// readPersistent treats every failure as a miss. Corrupt rows are logged and
// later overwritten by writePersistent. dim is the model width, 0 when the
// model cannot report it yet.
func (p *Provider) readPersistent(ctx context.Context, key string, dim int) ([]float32, bool) {
	if p.persist == nil {
		return nil, false
	}
	entry, ok, err := p.persist.GetEmbedding(ctx, key)
	switch {
	case errors.Is(err, store.ErrCorruptEntry):
		p.logger.Warn("corrupt embedding cache entry, recomputing", "key", key, "err", err)
		return nil, false
	case err != nil:
		p.logger.Warn("embedding cache read failed", "key", key, "err", err)
		return nil, false
	case !ok:
		return nil, false
	}
	if entry.ModelID != p.modelID {
		p.logger.Warn("embedding cache entry has foreign model, recomputing", "key", key, "model_id", entry.ModelID)
		return nil, false
	}
	if dim > 0 && (entry.Dim != dim || len(entry.Vector) != dim) {
		p.logger.Warn("embedding cache entry has wrong dimension, recomputing", "key", key, "dim", entry.Dim, "want", dim)
		return nil, false
	}
	return entry.Vector, true
}

func (p *Provider) writePersistent(ctx context.Context, key string, vec []float32) {
	if p.persist == nil {
		return
	}
	err := p.persist.PutEmbedding(ctx, store.EmbeddingEntry{
		CacheKey: key,
		ModelID:  p.modelID,
		Dim:      len(vec),
		Vector:   vec,
	})
	if err != nil {
		p.logger.Warn("embedding cache write failed", "key", key, "err", err)
	}
}

// #endregion embed

// #region batch
// EmbedBatch embeds texts with at most BatchSize concurrent workers and
// returns results in input order. The first error cancels the rest.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	out := make([]Result, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.BatchSize)
	for i, text := range texts {
		g.Go(func() error {
			r, err := p.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed batch item %d: %w", i, err)
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion batch

// #region health
// HealthCheck embeds ProbeText directly through the model, bypassing both
// caches, and reports the outcome.
func (p *Provider) HealthCheck(ctx context.Context) Health {
	h := Health{ModelID: p.modelID}
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	p.inflight.RLock()
	defer p.inflight.RUnlock()

	start := time.Now()
	vec, err := p.probe(ctx)
	h.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.OK = true
	h.Dimension = len(vec)
	return h
}

func (p *Provider) probe(ctx context.Context) ([]float32, error) {
	m, err := p.ensureModel(ctx)
	if err != nil {
		return nil, err
	}
	return p.invoke(ctx, m, ProbeText)
}

// #endregion health

// #region lifecycle
// Clear evicts both cache tiers and returns the number of persistent rows
// removed.
func (p *Provider) Clear(ctx context.Context) (int64, error) {
	p.mem.Purge()
	if p.persist == nil {
		return 0, nil
	}
	n, err := p.persist.ClearEmbeddings(ctx)
	if err != nil {
		return 0, err
	}
	p.logger.Info("embedding cache cleared", "rows", n)
	return n, nil
}

// Close waits for in-flight model calls and then releases the model if it
// holds resources. The provider may be used again afterwards; the model is
// reloaded on demand.
func (p *Provider) Close() error {
	p.inflight.Lock()
	defer p.inflight.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return nil
	}
	var err error
	if c, ok := p.model.(io.Closer); ok {
		err = c.Close()
	}
	p.model = nil
	return err
}

// #endregion lifecycle
