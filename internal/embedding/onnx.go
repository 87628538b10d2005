package embedding

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// ONNXConfig locates a sentence-embedding model exported to ONNX.
type ONNXConfig struct {
	ModelPath      string `yaml:"model_path" json:"model_path"`
	Name           string `yaml:"name" json:"name"`
	OrtLibraryPath string `yaml:"ort_library_path" json:"ort_library_path"`
	Dimension      int    `yaml:"dimension" json:"dimension"`
	UseGPU         bool   `yaml:"use_gpu" json:"use_gpu"`
}

// #region onnx-model
// ONNXModel runs a hugot feature-extraction pipeline on ONNX Runtime.
type ONNXModel struct {
	cfg      ONNXConfig
	mu       sync.RWMutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	dim      atomic.Int64
}

// NewONNXModel creates the ORT session and the pipeline. It is expensive and
// meant to be called from a Loader.
func NewONNXModel(cfg ONNXConfig) (*ONNXModel, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("onnx model path is empty")
	}
	if cfg.Name == "" {
		cfg.Name = "preintel-embedder"
	}

	sessionOpts := []options.WithOption{
		options.WithIntraOpNumThreads(runtime.NumCPU()),
	}
	if cfg.OrtLibraryPath != "" {
		sessionOpts = append(sessionOpts, options.WithOnnxLibraryPath(cfg.OrtLibraryPath))
	}
	if cfg.UseGPU {
		sessionOpts = append(sessionOpts, options.WithCuda(nil))
	}

	session, err := hugot.NewORTSession(sessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("create ORT session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: cfg.ModelPath,
		Name:      cfg.Name,
	})
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	m := &ONNXModel{cfg: cfg, session: session, pipeline: pipeline}
	m.dim.Store(int64(cfg.Dimension))
	return m, nil
}

// Embed runs the pipeline on a single text.
func (o *ONNXModel) Embed(_ context.Context, text string) ([]float32, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.pipeline == nil {
		return nil, errors.New("onnx pipeline closed")
	}

	output, err := o.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if len(output.Embeddings) == 0 {
		return nil, errors.New("no embedding returned")
	}
	vec := output.Embeddings[0]
	normalize(vec)
	o.dim.CompareAndSwap(0, int64(len(vec)))
	return vec, nil
}

// Dimension returns the configured width, or the width of the first output.
func (o *ONNXModel) Dimension() int { return int(o.dim.Load()) }

// Close destroys the ORT session.
func (o *ONNXModel) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		o.session.Destroy()
		o.session = nil
	}
	o.pipeline = nil
	return nil
}

// #endregion onnx-model
