package chunkline

import (
	"github.com/chunkline/chunkline/chunk"
	"github.com/chunkline/chunkline/config"
)

// Pipeline owns configured strategy instances and runs documents through
// them, with per-(document, strategy) failure isolation and parallel
// batch execution.
type Pipeline = chunk.Pipeline

// PipelineOption configures pipeline construction. Options follow the
// functional options pattern for clean and flexible configuration.
type PipelineOption func(*chunk.Config)

// WithStrategies restricts the pipeline to the named strategies, in order.
func WithStrategies(names ...string) PipelineOption {
	return func(cfg *chunk.Config) {
		cfg.EnabledStrategies = names
	}
}

// WithStrategyParams overrides the parameters of one strategy. Values are
// merged over the defaults.
func WithStrategyParams(name string, params Params) PipelineOption {
	return func(cfg *chunk.Config) {
		base := cfg.StrategyConfigs[name]
		if base == nil {
			base = chunk.Params{}
			cfg.StrategyConfigs[name] = base
		}
		for k, v := range params {
			base[k] = v
		}
	}
}

// WithBatchSize sets how many documents form one parallel batch.
func WithBatchSize(n int) PipelineOption {
	return func(cfg *chunk.Config) {
		if n > 0 {
			cfg.BatchSize = n
		}
	}
}

// WithMaxWorkers bounds the number of parallel workers in batch
// processing.
func WithMaxWorkers(n int) PipelineOption {
	return func(cfg *chunk.Config) {
		if n > 0 {
			cfg.MaxWorkers = n
		}
	}
}

// NewPipeline creates a chunking pipeline from the built-in defaults plus
// the given options.
func NewPipeline(opts ...PipelineOption) (*Pipeline, error) {
	cfg := chunk.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return chunk.NewPipeline(cfg)
}

// NewPipelineFromConfig creates a pipeline from configuration loaded from
// the standard file locations and environment variables.
func NewPipelineFromConfig() (*Pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return chunk.NewPipeline(cfg)
}
