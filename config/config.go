// Package config loads the chunking pipeline configuration from multiple
// sources with a simple precedence order (highest first):
//  1. Environment variables
//  2. Configuration file (JSON)
//  3. Built-in defaults
//
// Configuration file search paths:
//  1. $CHUNKLINE_CONFIG
//  2. ~/.chunkline/config.json
//  3. ~/.config/chunkline/config.json
//  4. ./chunkline.json
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chunkline/chunkline/chunk"
)

// Load builds the pipeline configuration from defaults, an optional
// configuration file, and environment overrides, then validates and
// clamps out-of-range strategy parameters.
func Load() (*chunk.Config, error) {
	cfg := chunk.DefaultConfig()

	path := configFilePath()
	if path != "" {
		if err := mergeFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	validate(cfg)
	return cfg, nil
}

// LoadFile builds the configuration from defaults plus one explicit file,
// skipping the search paths. Environment overrides still apply.
func LoadFile(path string) (*chunk.Config, error) {
	cfg := chunk.DefaultConfig()
	if err := mergeFile(cfg, path); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	validate(cfg)
	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv("CHUNKLINE_CONFIG"); path != "" {
		return path
	}
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".chunkline", "config.json"),
			filepath.Join(home, ".config", "chunkline", "config.json"),
		)
	}
	candidates = append(candidates, "chunkline.json")
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFile(cfg *chunk.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file chunk.Config
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(file.EnabledStrategies) > 0 {
		cfg.EnabledStrategies = file.EnabledStrategies
	}
	for name, params := range file.StrategyConfigs {
		base := cfg.StrategyConfigs[name]
		if base == nil {
			base = chunk.Params{}
			cfg.StrategyConfigs[name] = base
		}
		for k, v := range params {
			base[k] = v
		}
	}
	if file.BatchSize > 0 {
		cfg.BatchSize = file.BatchSize
	}
	if file.MaxWorkers > 0 {
		cfg.MaxWorkers = file.MaxWorkers
	}
	return nil
}

func applyEnv(cfg *chunk.Config) {
	if v := os.Getenv("CHUNKLINE_STRATEGIES"); v != "" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			cfg.EnabledStrategies = names
		}
	}
	if v := os.Getenv("CHUNKLINE_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxWorkers = n
		}
	}
	if v := os.Getenv("CHUNKLINE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("CHUNKLINE_LOG_LEVEL"); v != "" {
		chunk.SetGlobalLogLevel(chunk.ParseLogLevel(v))
	}
}

// validate clamps out-of-range strategy parameters back to safe defaults,
// logging each adjustment. Programmatic strategy construction still
// rejects invalid parameters outright; clamping only applies to loaded
// configuration.
func validate(cfg *chunk.Config) {
	for name, params := range cfg.StrategyConfigs {
		switch name {
		case chunk.StrategyFixedSizeChars:
			if size := params.Int("chunk_size", 1000); size < 100 || size > 8192 {
				chunk.GlobalLogger.Warn("chunk_size outside recommended range, using 1000",
					"strategy", name, "chunk_size", size)
				params["chunk_size"] = 1000
			}
		case chunk.StrategyFixedSizeTokens, chunk.StrategySlidingText:
			size := params.Int("chunk_size", 1000)
			overlap := params.Int("chunk_overlap", 200)
			if overlap >= size {
				chunk.GlobalLogger.Warn("chunk_overlap >= chunk_size, clamping",
					"strategy", name, "chunk_size", size, "chunk_overlap", overlap)
				params["chunk_overlap"] = size / 4
			}
		case chunk.StrategySlidingElements:
			if pct := params.Float("overlap_percentage", 0.2); pct < 0 || pct >= 1 {
				chunk.GlobalLogger.Warn("overlap_percentage outside [0,1), using 0.2",
					"strategy", name, "overlap_percentage", pct)
				params["overlap_percentage"] = 0.2
			}
		case chunk.StrategySemantic:
			minSize := params.Int("min_chunk_size", 200)
			maxSize := params.Int("max_chunk_size", 2000)
			if minSize >= maxSize {
				chunk.GlobalLogger.Warn("min_chunk_size >= max_chunk_size, using defaults",
					"strategy", name, "min_chunk_size", minSize, "max_chunk_size", maxSize)
				params["min_chunk_size"] = 200
				params["max_chunk_size"] = 2000
			}
			if t := params.Float("similarity_threshold", 0.8); t < 0 || t > 1 {
				chunk.GlobalLogger.Warn("similarity_threshold outside [0,1], using 0.8",
					"strategy", name, "similarity_threshold", t)
				params["similarity_threshold"] = 0.8
			}
		}
	}
}
