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


package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/semaphore"

	"github.com/openshelf/reviewloader/ai"
	"github.com/openshelf/reviewloader/checkpoint"
	"github.com/openshelf/reviewloader/store"
)

// EngineFactory constructs an embedding engine bound to one device.
// Called once per shard; the engine lives for the shard's whole run
// including retries.
type EngineFactory func(device int) (ai.Embedder, error)

// Config holds coordinator-level settings for a run.
type Config struct {
	// Workers is the number of shards and concurrent workers.
	Workers int

	// Devices maps shards to device ids. Empty means shard i uses
	// device i.
	Devices []int

	// MaxShardRetries is how many times a failed shard is relaunched
	// before the run is marked degraded.
	MaxShardRetries int

	// MaxRecords caps the records read per input file. Zero means no
	// cap. Used by test/dry-run mode.
	MaxRecords int64

	// MaxInflightTexts caps texts held by embedding engines at once
	// across all workers. Zero derives Workers * Worker.BatchSize.
	MaxInflightTexts int64

	// MetadataBatchSize is the upsert batch size for the metadata stage.
	MetadataBatchSize int

	// ProgressInterval is how often to report progress (number of records).
	ProgressInterval int64

	// Worker holds the per-worker settings shared by all shards.
	Worker *WorkerConfig
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:           1,
		MaxShardRetries:   2,
		MetadataBatchSize: 500,
		ProgressInterval:  1000,
		Worker:            DefaultWorkerConfig(),
	}
}

// Coordinator plans shards, launches workers, retries failed shards and
// aggregates the run report. It performs no embedding or writing itself.
type Coordinator struct {
	st        store.Store
	newEngine EngineFactory
	cfg       *Config
	cursors   *checkpoint.Store
	pool      *ants.Pool
	progressW io.Writer
	logger    *slog.Logger

	mu       sync.Mutex
	runState map[int]ShardStatus
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithCheckpoints enables cursor persistence so retried shards and
// restarted runs resume from their last committed batch.
func WithCheckpoints(cursors *checkpoint.Store) Option {
	return func(c *Coordinator) error {
		c.cursors = cursors
		return nil
	}
}

// WithProgressWriter sets where progress lines are written.
// Default is no progress output.
func WithProgressWriter(w io.Writer) Option {
	return func(c *Coordinator) error {
		if w != nil {
			c.progressW = w
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// New creates a Coordinator.
func New(st store.Store, newEngine EngineFactory, cfg *Config, opts ...Option) (*Coordinator, error) {
	if st == nil {
		return nil, ErrStoreRequired
	}
	if newEngine == nil {
		return nil, ErrEngineFactoryRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Worker == nil {
		cfg.Worker = DefaultWorkerConfig()
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		st:        st,
		newEngine: newEngine,
		cfg:       cfg,
		pool:      pool,
		progressW: io.Discard,
		logger:    slog.Default(),
		runState:  make(map[int]ShardStatus),
	}
	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			c.Release()
			return nil, optErr
		}
	}
	c.logger = c.logger.With("component", "coordinator")
	return c, nil
}

// Release releases the worker pool. The coordinator should not be used
// after calling Release.
func (c *Coordinator) Release() {
	if c.pool != nil {
		c.pool.Release()
	}
}

// ShardState returns the tracked status of a shard, or zero if unknown.
func (c *Coordinator) ShardState(shardID int) ShardStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runState[shardID]
}

func (c *Coordinator) setShardState(shardID int, status ShardStatus) {
	c.mu.Lock()
	c.runState[shardID] = status
	c.mu.Unlock()
}

// Run executes the full ingestion: the metadata stage first (when
// metadataPath is non-empty), then the sharded review stage (when
// reviewsPath is non-empty). Metadata goes first so review foreign keys
// resolve. The returned error covers planning and setup failures only;
// per-shard failures are reported through the Report.
func (c *Coordinator) Run(ctx context.Context, metadataPath, reviewsPath string) (*Report, error) {
	report := &Report{}

	if metadataPath != "" {
		if err := c.loadMetadata(ctx, metadataPath, report); err != nil {
			return report, err
		}
	}
	if reviewsPath != "" {
		if err := c.loadReviews(ctx, reviewsPath, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// loadMetadata streams the whole metadata file in one pass, upserting
// batches. Upserts are keyed by parent_asin, so the stage is idempotent
// and needs no cursor.
func (c *Coordinator) loadMetadata(ctx context.Context, path string, report *Report) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	whole := Shard{Start: 0, End: info.Size()}
	stream, err := OpenMetadataStream(path, whole, c.cfg.MetadataBatchSize, 0)
	if err != nil {
		return err
	}
	defer stream.Close()

	c.logger.Info("metadata stage starting", "path", path)
	var consumed int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if c.cfg.MaxRecords > 0 {
			remaining := c.cfg.MaxRecords - consumed
			if remaining <= 0 {
				break
			}
			if int64(len(batch.Records)) > remaining {
				batch.Records = batch.Records[:remaining]
			}
		}
		consumed += int64(len(batch.Records)) + int64(len(batch.Skipped))

		report.MetadataSkipped += int64(len(batch.Skipped))
		if len(batch.Records) == 0 {
			continue
		}

		err = RetryWithBackoff(ctx, func() error {
			uctx, cancel := context.WithTimeout(ctx, c.cfg.Worker.WriteTimeout)
			defer cancel()

			upsertErr := c.st.UpsertMetadata(uctx, batch.Records)
			if upsertErr == nil {
				return nil
			}
			if errors.Is(upsertErr, store.ErrTransient) || errors.Is(upsertErr, context.DeadlineExceeded) {
				return upsertErr
			}
			return Permanent(upsertErr)
		}, c.cfg.Worker.MaxWriteAttempts, c.cfg.Worker.RetryBaseDelay)
		if err != nil {
			return fmt.Errorf("metadata upsert: %w", err)
		}
		report.MetadataProcessed += int64(len(batch.Records))
	}

	c.logger.Info("metadata stage complete",
		"processed", report.MetadataProcessed, "skipped", report.MetadataSkipped)
	return nil
}

// loadReviews plans the review file into shards and runs one worker per
// shard, retrying failed shards up to the configured ceiling.
func (c *Coordinator) loadReviews(ctx context.Context, path string, report *Report) error {
	shards, err := PlanShards(path, c.cfg.Workers, c.cfg.MaxRecords)
	if err != nil {
		return err
	}

	var total int64
	for i := range shards {
		if len(c.cfg.Devices) > 0 {
			shards[i].Device = c.cfg.Devices[i%len(c.cfg.Devices)]
		}
		total += shards[i].Records
		c.setShardState(shards[i].ID, ShardPending)
	}

	runKey := ""
	if c.cursors != nil {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		runKey = checkpoint.RunKey(path, info.Size())
	}

	inflight := c.cfg.MaxInflightTexts
	if inflight <= 0 {
		inflight = int64(c.cfg.Workers) * int64(c.cfg.Worker.BatchSize)
	}
	// A gate smaller than one batch could never be acquired.
	if inflight < int64(c.cfg.Worker.BatchSize) {
		inflight = int64(c.cfg.Worker.BatchSize)
	}
	gate := semaphore.NewWeighted(inflight)

	progress := NewProgressTracker(c.progressW, total, c.cfg.ProgressInterval)
	progress.Start()
	defer progress.Finish()

	engines := make(map[int]ai.Embedder, len(shards))
	for _, shard := range shards {
		engine, err := c.newEngine(shard.Device)
		if err != nil {
			return fmt.Errorf("creating engine for device %d: %w", shard.Device, err)
		}
		engines[shard.ID] = engine
	}

	c.logger.Info("review stage starting",
		"path", path, "shards", len(shards), "records", total)

	results := make(map[int]*WorkerResult, len(shards))
	pending := shards
	for attempt := 0; attempt <= c.cfg.MaxShardRetries && len(pending) > 0; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying failed shards", "attempt", attempt, "shards", len(pending))
		}
		for _, result := range c.launch(ctx, path, pending, engines, gate, runKey, progress) {
			results[result.ShardID] = result
		}

		var failed []Shard
		for _, shard := range pending {
			result := results[shard.ID]
			if result != nil && result.Status == StatusFailed {
				c.setShardState(shard.ID, ShardFailed)
				failed = append(failed, shard)
			} else {
				c.setShardState(shard.ID, ShardDone)
			}
		}
		pending = failed

		if ctx.Err() != nil {
			break
		}
	}

	for _, shard := range shards {
		result := results[shard.ID]
		if result == nil {
			result = &WorkerResult{ShardID: shard.ID, Status: StatusFailed, Err: ctx.Err()}
		}
		report.Shards = append(report.Shards, result)
		report.Processed += result.Processed
		report.Skipped += result.Skipped
	}
	sort.Slice(report.Shards, func(i, j int) bool {
		return report.Shards[i].ShardID < report.Shards[j].ShardID
	})

	if report.Succeeded() && c.cursors != nil && runKey != "" {
		if err := c.cursors.ClearRun(ctx, runKey); err != nil {
			c.logger.Warn("clearing run cursors failed", "error", err)
		}
	}

	c.logger.Info("review stage complete",
		"processed", report.Processed, "skipped", report.Skipped, "succeeded", report.Succeeded())
	return nil
}

// launch runs one worker per shard on the pool and waits for all of them.
func (c *Coordinator) launch(ctx context.Context, path string, shards []Shard, engines map[int]ai.Embedder, gate *semaphore.Weighted, runKey string, progress *ProgressTracker) []*WorkerResult {
	var wg sync.WaitGroup
	resultCh := make(chan *WorkerResult, len(shards))

	for _, shard := range shards {
		shard := shard
		c.setShardState(shard.ID, ShardInProgress)

		opts := []WorkerOption{
			WithMemoryGate(gate),
			WithProgress(progress),
			WithWorkerLogger(c.logger),
		}
		if c.cursors != nil {
			opts = append(opts, WithCursorStore(c.cursors, runKey))
		}
		worker := NewWorker(path, shard, engines[shard.ID], c.st, c.cfg.Worker, opts...)

		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			resultCh <- worker.Run(ctx)
		})
		if err != nil {
			wg.Done()
			resultCh <- &WorkerResult{ShardID: shard.ID, Status: StatusFailed, Err: err}
		}
	}

	wg.Wait()
	close(resultCh)

	results := make([]*WorkerResult, 0, len(shards))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}
