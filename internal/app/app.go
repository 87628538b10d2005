// Package app assembles the pipeline and its collaborators from a loaded
// configuration. Both CLIs build through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SKDesing/aura-osint/go-preintel/internal/backend"
	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
	"github.com/SKDesing/aura-osint/go-preintel/internal/config"
	"github.com/SKDesing/aura-osint/go-preintel/internal/embedding"
	"github.com/SKDesing/aura-osint/go-preintel/internal/fingerprint"
	"github.com/SKDesing/aura-osint/go-preintel/internal/pipeline"
	"github.com/SKDesing/aura-osint/go-preintel/internal/policy"
	"github.com/SKDesing/aura-osint/go-preintel/internal/prune"
	"github.com/SKDesing/aura-osint/go-preintel/internal/retrieval"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
	"github.com/SKDesing/aura-osint/go-preintel/internal/segment"
	"github.com/SKDesing/aura-osint/go-preintel/internal/store"
)

// ErrPrototypeModel is returned when the prototype file was built with a
// different embedding model than the one configured.
var ErrPrototypeModel = errors.New("prototype model mismatch")

// #region app
// App owns every long-lived resource. Close releases them in reverse order.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    *store.Store
	Embedder *embedding.Provider
	Router   *router.Router
	Pipeline *pipeline.Pipeline // nil from BuildRouter

	closers []io.Closer
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// #endregion app

// #region build
// BuildRouter opens the store and builds the embedding provider and router.
// It is enough for classification-only tools.
func BuildRouter(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.buildRouter(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Build assembles the full pipeline.
func Build(cfg config.Config, logger *slog.Logger) (*App, error) {
	a, err := BuildRouter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.buildPipeline(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildRouter() error {
	st, err := store.Open(a.Config.Store.Path)
	if err != nil {
		return err
	}
	a.Store = st
	a.closers = append(a.closers, st)

	load, err := embedding.NewLoader(a.Config.Embedding)
	if err != nil {
		return err
	}
	provider, err := embedding.NewProvider(a.Config.Embedding, load, st, a.Logger)
	if err != nil {
		return err
	}
	a.Embedder = provider
	a.closers = append(a.closers, provider)

	var protos *router.PrototypeSet
	if path := a.Config.Router.PrototypesPath; path != "" {
		if protos, err = router.LoadPrototypes(path); err != nil {
			return err
		}
		if protos.ModelID != "" && protos.ModelID != provider.ModelID() {
			return fmt.Errorf("%w: %s was built with %q, provider is %q", ErrPrototypeModel, path, protos.ModelID, provider.ModelID())
		}
	}
	r, err := router.New(a.Config.Router, provider, protos, a.Logger)
	if err != nil {
		return err
	}
	a.Router = r
	return nil
}

func (a *App) buildPipeline() error {
	cfg := a.Config

	var client *codec.CodecClient
	if cfg.NeedsCodec() {
		c, err := codec.NewCodecClient(cfg.Codec.Addr)
		if err != nil {
			return err
		}
		client = c
		a.closers = append(a.closers, c)
	}

	fp, err := fingerprint.New(cfg.Fingerprint.Bits, nil)
	if err != nil {
		return err
	}
	seg, err := segment.New(cfg.Segment)
	if err != nil {
		return err
	}
	pruner, err := prune.NewEngine(cfg.Prune, fp)
	if err != nil {
		return err
	}

	var retriever *retrieval.Retriever
	searcher, err := retrieval.NewSearcher(cfg.Retrieval, client, seg)
	if err != nil {
		return err
	}
	if searcher != nil {
		if c, ok := searcher.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
		if retriever, err = retrieval.NewRetriever(searcher, cfg.Retrieval, fp); err != nil {
			return err
		}
	}

	guard, err := policy.New(cfg.Policy, client)
	if err != nil {
		return err
	}
	model, err := backend.New(cfg.Backend, client)
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Deps{
		Segmenter:   seg,
		Pruner:      pruner,
		Router:      a.Router,
		Retriever:   retriever,
		Guard:       guard,
		Backend:     model,
		DecisionLog: a.Store.DB(),
		Retry:       cfg.Retry,
		Logger:      a.Logger,
	})
	if err != nil {
		return err
	}
	a.Pipeline = p
	a.Logger.Info("pipeline ready",
		"router_version", a.Router.Version(),
		"embedding_model", a.Embedder.ModelID(),
		"retrieval", cfg.Retrieval.Source,
		"policy", cfg.Policy.Mode,
		"backend", cfg.Backend.Provider,
	)
	return nil
}

// #endregion build

// #region watch
// WatchPrototypes hot-reloads the configured prototype file until ctx is
// done. It returns immediately when no file is configured.
func (a *App) WatchPrototypes(ctx context.Context) error {
	path := a.Config.Router.PrototypesPath
	if path == "" {
		return nil
	}
	return a.Router.WatchPrototypes(ctx, path)
}

// #endregion watch
