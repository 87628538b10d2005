package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
	"github.com/SKDesing/aura-osint/go-preintel/internal/config"
	"github.com/SKDesing/aura-osint/go-preintel/internal/embedding"
	"github.com/SKDesing/aura-osint/go-preintel/internal/policy"
	"github.com/SKDesing/aura-osint/go-preintel/internal/retrieval"
	"github.com/SKDesing/aura-osint/go-preintel/internal/segment"
)

// #region local-services
// LocalInference serves Embed and Search from in-process components.
// Generate is left unimplemented.
type LocalInference struct {
	codec.UnimplementedInference
	Model    embedding.Model
	Searcher retrieval.Searcher // nil leaves Search unimplemented
}

func (s *LocalInference) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.Model.Embed(ctx, text)
}

func (s *LocalInference) Search(ctx context.Context, query string, topK int, threshold float32) ([]codec.SearchResult, error) {
	if s.Searcher == nil {
		return s.UnimplementedInference.Search(ctx, query, topK, threshold)
	}
	recs, err := s.Searcher.Search(ctx, query, topK, threshold)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := make([]codec.SearchResult, len(recs))
	for i, r := range recs {
		out[i] = codec.SearchResult{ID: r.ID, Text: r.Text, Score: r.Score, MetadataJSON: r.MetadataJSON}
	}
	return out, nil
}

// LocalGuardrail serves Check from an in-process guard.
type LocalGuardrail struct {
	Guard policy.Guard
}

func (s *LocalGuardrail) Check(ctx context.Context, pre, post string) (codec.CheckResult, error) {
	v, err := s.Guard.Check(ctx, policy.Input{Pre: pre, Post: post})
	if err != nil {
		return codec.CheckResult{}, status.Error(codes.Internal, err.Error())
	}
	return codec.CheckResult{Blocked: v.Blocked, RulesTriggered: v.RulesTriggered, Version: v.Version}, nil
}

// #endregion local-services

// #region serve
// ServeLocal runs the codec services on lis until ctx is done. The model and
// guard come from cfg; remote modes are refused since the server would call
// itself.
func ServeLocal(ctx context.Context, lis net.Listener, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Embedding.Model == "remote" || cfg.Policy.Mode == "remote" || cfg.Retrieval.Source == "remote" {
		return fmt.Errorf("%w: local services cannot use remote modes", config.ErrInvalidConfig)
	}

	load, err := embedding.NewLoader(cfg.Embedding)
	if err != nil {
		return err
	}
	model, err := load(ctx)
	if err != nil {
		return fmt.Errorf("load embedding model: %w", err)
	}
	if c, ok := model.(io.Closer); ok {
		defer c.Close()
	}

	inference := &LocalInference{Model: model}
	seg, err := segment.New(cfg.Segment)
	if err != nil {
		return err
	}
	searcher, err := retrieval.NewSearcher(cfg.Retrieval, nil, seg)
	if err != nil {
		return err
	}
	if searcher != nil {
		inference.Searcher = searcher
		if c, ok := searcher.(io.Closer); ok {
			defer c.Close()
		}
	}

	srv := grpc.NewServer()
	codec.RegisterInference(srv, inference)

	policyCfg := cfg.Policy
	if policyCfg.Mode == "none" {
		policyCfg = policy.DefaultConfig()
	}
	guard, err := policy.New(policyCfg, nil)
	if err != nil {
		return err
	}
	codec.RegisterGuardrail(srv, &LocalGuardrail{Guard: guard})

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	logger.Info("codec services listening", "addr", lis.Addr().String(), "retrieval", cfg.Retrieval.Source)
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// #endregion serve
