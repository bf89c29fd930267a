// Copyright 2025 Openshelf Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package reviewloader loads product metadata and user reviews from
// JSON-lines corpora into a relational store with vector embeddings.
//
// The Loader is the top-level facade: it wires an embedding backend,
// a store, optional resume checkpoints and the sharded ingestion
// pipeline into a single Run call. The cmd/reviewloader CLI is a thin
// wrapper around it.
package reviewloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/openshelf/reviewloader/ai"
	"github.com/openshelf/reviewloader/ai/huggingface"
	"github.com/openshelf/reviewloader/ai/openai"
	"github.com/openshelf/reviewloader/checkpoint"
	"github.com/openshelf/reviewloader/ingest"
	"github.com/openshelf/reviewloader/store"
)

// Config holds a complete ingestion run description.
type Config struct {
	// MetadataPath is the product metadata JSON-lines file. Empty skips
	// the metadata stage.
	MetadataPath string

	// ReviewsPath is the user reviews JSON-lines file. Empty skips the
	// review stage.
	ReviewsPath string

	// Workers is the number of shards and concurrent workers.
	Workers int

	// Devices optionally pins shards to device ids.
	Devices []int

	// EmbeddingHosts optionally maps devices to per-device engine
	// endpoints (device i uses host i mod len). Empty uses the
	// embedding config's host for every device.
	EmbeddingHosts []string

	// BatchSize is the records per embed-and-commit transaction.
	BatchSize int

	// MaxRecords caps records read per file; zero means no cap.
	// Used by test/dry-run mode.
	MaxRecords int64

	// MaxShardRetries is the per-shard relaunch ceiling.
	MaxShardRetries int

	// CheckpointPath, when set, persists resume cursors in a BadgerDB
	// at this directory so interrupted runs resume.
	CheckpointPath string

	// Embedding configures the embedding backend.
	Embedding *ai.Config
}

// normalize fills zero values in place.
func (c *Config) normalize() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	// A capped trial run gains nothing from sharding.
	if c.MaxRecords > 0 {
		c.Workers = 1
	}
	if c.MaxShardRetries < 0 {
		c.MaxShardRetries = 0
	}
	if c.Embedding == nil {
		c.Embedding = ai.DefaultConfig()
	}
}

// Loader runs the full ingestion against a store.
type Loader struct {
	cfg         *Config
	st          store.Store
	coordinator *ingest.Coordinator
	cursors     *checkpoint.Store
	logger      *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	engineFactory  ingest.EngineFactory
	progressWriter io.Writer
	logger         *slog.Logger
}

// WithEngineFactory overrides how per-device embedding engines are
// constructed. Tests use this to inject mock engines.
func WithEngineFactory(factory ingest.EngineFactory) LoaderOption {
	return func(o *loaderOptions) {
		o.engineFactory = factory
	}
}

// WithProgressWriter sets where progress lines are written.
func WithProgressWriter(w io.Writer) LoaderOption {
	return func(o *loaderOptions) {
		o.progressWriter = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(o *loaderOptions) {
		o.logger = logger
	}
}

// NewLoader wires a Loader against the given store. The store's
// referential policy (strict or resilient) is the store's own concern;
// the loader only routes batches to it.
func NewLoader(cfg *Config, st store.Store, opts ...LoaderOption) (*Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.normalize()

	options := &loaderOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	embedCfg := cfg.Embedding
	embedCfg.Normalize()
	if err := embedCfg.Validate(); err != nil {
		return nil, fmt.Errorf("embedding config: %w", err)
	}

	factory := options.engineFactory
	if factory == nil {
		factory = newEngineFactory(embedCfg, cfg.EmbeddingHosts)
	}

	workerCfg := ingest.DefaultWorkerConfig()
	if cfg.BatchSize > 0 {
		workerCfg.BatchSize = cfg.BatchSize
	}
	if embedCfg.Dimension > 0 {
		workerCfg.Dimension = embedCfg.Dimension
	}

	coordCfg := ingest.DefaultConfig()
	coordCfg.Workers = cfg.Workers
	coordCfg.Devices = cfg.Devices
	coordCfg.MaxShardRetries = cfg.MaxShardRetries
	coordCfg.MaxRecords = cfg.MaxRecords
	coordCfg.Worker = workerCfg

	var cursors *checkpoint.Store
	var err error
	if cfg.CheckpointPath != "" {
		cursors, err = checkpoint.Open(cfg.CheckpointPath)
		if err != nil {
			return nil, fmt.Errorf("opening checkpoint store: %w", err)
		}
	}

	coordOpts := []ingest.Option{ingest.WithLogger(options.logger)}
	if cursors != nil {
		coordOpts = append(coordOpts, ingest.WithCheckpoints(cursors))
	}
	if options.progressWriter != nil {
		coordOpts = append(coordOpts, ingest.WithProgressWriter(options.progressWriter))
	}

	coordinator, err := ingest.New(st, factory, coordCfg, coordOpts...)
	if err != nil {
		if cursors != nil {
			cursors.Close()
		}
		return nil, err
	}

	return &Loader{
		cfg:         cfg,
		st:          st,
		coordinator: coordinator,
		cursors:     cursors,
		logger:      options.logger,
	}, nil
}

// newEngineFactory builds device-bound engines for the configured
// backend. Device binding is a constructed value, never ambient state.
func newEngineFactory(base *ai.Config, hosts []string) ingest.EngineFactory {
	return func(device int) (ai.Embedder, error) {
		host := base.Host
		if len(hosts) > 0 {
			host = hosts[device%len(hosts)]
		}
		cfg := base.ForDevice(device, host)
		switch cfg.Backend {
		case ai.BackendHuggingFace:
			return huggingface.NewEmbedder(cfg)
		default:
			return openai.NewEmbedder(cfg)
		}
	}
}

// Run executes the configured ingestion: metadata first, then reviews.
func (l *Loader) Run(ctx context.Context) (*ingest.Report, error) {
	return l.coordinator.Run(ctx, l.cfg.MetadataPath, l.cfg.ReviewsPath)
}

// Close releases the worker pool and checkpoint database. The store is
// owned by the caller and left open.
func (l *Loader) Close() error {
	l.coordinator.Release()
	if l.cursors != nil {
		return l.cursors.Close()
	}
	return nil
}
