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
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/openshelf/reviewloader/ai"
	"github.com/openshelf/reviewloader/checkpoint"
	"github.com/openshelf/reviewloader/store"
)

// WorkerState is the worker's position in its per-shard state machine.
type WorkerState int

const (
	WorkerIdle WorkerState = iota + 1
	WorkerStreaming
	WorkerEmbedding
	WorkerWriting
	WorkerDone
	WorkerFailed
)

// String returns a human-readable state name.
func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "Idle"
	case WorkerStreaming:
		return "Streaming"
	case WorkerEmbedding:
		return "Embedding"
	case WorkerWriting:
		return "Writing"
	case WorkerDone:
		return "Done"
	case WorkerFailed:
		return "Failed"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// WorkerConfig holds the per-worker tuning knobs. All workers of a run
// share one config; the embedding engine and shard differ per worker.
type WorkerConfig struct {
	// BatchSize is the number of records embedded and committed per
	// transaction.
	BatchSize int

	// Dimension is the vector width the store expects. Engine output is
	// padded or truncated to fit.
	Dimension int

	// MaxEmbedAttempts bounds the batch-halving retry loop for embedding
	// failures.
	MaxEmbedAttempts int

	// MaxWriteAttempts bounds retries of a batch write on transient store
	// errors.
	MaxWriteAttempts int

	// RetryBaseDelay is the base delay for exponential backoff.
	RetryBaseDelay time.Duration

	// EmbedTimeout bounds one embedding engine call.
	EmbedTimeout time.Duration

	// WriteTimeout bounds one batch write.
	WriteTimeout time.Duration
}

// DefaultWorkerConfig returns a WorkerConfig with sensible defaults.
func DefaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		BatchSize:        256,
		Dimension:        768,
		MaxEmbedAttempts: 4,
		MaxWriteAttempts: 5,
		RetryBaseDelay:   1 * time.Second,
		EmbedTimeout:     2 * time.Minute,
		WriteTimeout:     1 * time.Minute,
	}
}

// Worker owns one shard and one device-bound embedding engine, and runs
// the stream -> embed -> write loop until the shard is exhausted or fails.
type Worker struct {
	path     string
	shard    Shard
	embedder ai.Embedder
	writer   store.ReviewWriter
	cfg      *WorkerConfig

	gate     *semaphore.Weighted
	cursors  *checkpoint.Store
	runKey   string
	progress *ProgressTracker
	logger   *slog.Logger

	mu    sync.Mutex
	state WorkerState
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithCursorStore enables resume cursors: the worker starts from its last
// committed offset and saves a new cursor after every committed batch.
func WithCursorStore(cursors *checkpoint.Store, runKey string) WorkerOption {
	return func(w *Worker) {
		w.cursors = cursors
		w.runKey = runKey
	}
}

// WithMemoryGate bounds the number of texts in flight to the embedding
// engines across all workers sharing the semaphore.
func WithMemoryGate(gate *semaphore.Weighted) WorkerOption {
	return func(w *Worker) {
		w.gate = gate
	}
}

// WithProgress attaches a shared progress tracker.
func WithProgress(progress *ProgressTracker) WorkerOption {
	return func(w *Worker) {
		w.progress = progress
	}
}

// WithWorkerLogger sets a custom logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker creates a worker for one shard of the reviews file.
func NewWorker(path string, shard Shard, embedder ai.Embedder, writer store.ReviewWriter, cfg *WorkerConfig, opts ...WorkerOption) *Worker {
	if cfg == nil {
		cfg = DefaultWorkerConfig()
	}
	w := &Worker{
		path:     path,
		shard:    shard,
		embedder: embedder,
		writer:   writer,
		cfg:      cfg,
		logger:   slog.Default(),
		state:    WorkerIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "worker", "shard", shard.ID, "device", shard.Device)
	return w
}

// State returns the worker's current state.
func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(state WorkerState) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}

// Run processes the shard to completion. It always returns a terminal
// result; errors are carried in the result rather than returned.
func (w *Worker) Run(ctx context.Context) *WorkerResult {
	result := &WorkerResult{ShardID: w.shard.ID}

	resumeAt := int64(0)
	if w.cursors != nil {
		cursor, err := w.cursors.Load(ctx, w.runKey, w.shard.ID)
		if err != nil {
			return w.fail(result, fmt.Errorf("loading cursor: %w", err))
		}
		if cursor != nil {
			resumeAt = cursor.Offset
			result.Processed = cursor.Processed
			result.Skipped = cursor.Skipped
			w.logger.Info("resuming shard from cursor", "offset", resumeAt, "processed", cursor.Processed)
		}
	}

	stream, err := OpenReviewStream(w.path, w.shard, w.cfg.BatchSize, resumeAt)
	if err != nil {
		return w.fail(result, err)
	}
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return w.fail(result, ctx.Err())
		default:
		}

		w.setState(WorkerStreaming)
		batch, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return w.fail(result, err)
		}

		result.Skipped += int64(len(batch.Skipped))
		result.Errors = append(result.Errors, batch.Skipped...)

		if len(batch.Records) == 0 {
			if err := w.saveCursor(ctx, batch.Next, result); err != nil {
				return w.fail(result, err)
			}
			continue
		}

		w.setState(WorkerEmbedding)
		vectors, err := w.embedBatch(ctx, batch)
		if err != nil {
			return w.fail(result, err)
		}

		w.setState(WorkerWriting)
		written, storeSkipped, err := w.writeBatch(ctx, batch, vectors)
		if err != nil {
			return w.fail(result, err)
		}

		result.Processed += int64(written)
		result.Skipped += int64(len(storeSkipped))
		for _, skip := range storeSkipped {
			result.Errors = append(result.Errors, RecordError{
				Offset: batch.Offsets[skip.Index],
				Reason: skip.Reason,
			})
		}
		if w.progress != nil {
			w.progress.Add(int64(written), int64(len(batch.Skipped)+len(storeSkipped)))
		}

		if err := w.saveCursor(ctx, batch.Next, result); err != nil {
			return w.fail(result, err)
		}
	}

	w.setState(WorkerDone)
	if result.Skipped > 0 {
		result.Status = StatusPartiallyFailed
	} else {
		result.Status = StatusSuccess
	}
	w.logger.Info("shard complete", "processed", result.Processed, "skipped", result.Skipped)
	return result
}

func (w *Worker) fail(result *WorkerResult, err error) *WorkerResult {
	w.setState(WorkerFailed)
	result.Status = StatusFailed
	result.Err = err
	w.logger.Error("shard failed", "error", err, "processed", result.Processed)
	return result
}

// embedBatch vectorizes the batch texts. On engine failure the effective
// chunk size is halved and the whole batch re-embedded, up to
// MaxEmbedAttempts, so a transient device memory exhaustion recovers
// without failing the shard.
func (w *Worker) embedBatch(ctx context.Context, batch *ReviewBatch) ([][]float32, error) {
	texts := make([]string, len(batch.Records))
	for i, record := range batch.Records {
		texts[i] = record.Text
	}

	chunkSize := len(texts)
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxEmbedAttempts; attempt++ {
		vectors, err := w.embedChunked(ctx, texts, chunkSize)
		if err == nil {
			return vectors, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		w.logger.Warn("embedding attempt failed", "attempt", attempt, "chunkSize", chunkSize, "error", err)
		if chunkSize > 1 {
			chunkSize = (chunkSize + 1) / 2
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrEmbedding, w.cfg.MaxEmbedAttempts, lastErr)
}

// embedChunked embeds texts in chunks of at most chunkSize, acquiring the
// memory gate for the duration of each engine call. Output vectors are
// fitted to the configured dimension and normalized.
func (w *Worker) embedChunked(ctx context.Context, texts []string, chunkSize int) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += chunkSize {
		end := min(i+chunkSize, len(texts))
		chunk := texts[i:end]

		if w.gate != nil {
			if err := w.gate.Acquire(ctx, int64(len(chunk))); err != nil {
				return nil, err
			}
		}
		ectx, cancel := context.WithTimeout(ctx, w.cfg.EmbedTimeout)
		vectors, err := w.embedder.EmbedTexts(ectx, chunk)
		cancel()
		if w.gate != nil {
			w.gate.Release(int64(len(chunk)))
		}
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(chunk) {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunk), len(vectors))
		}
		for _, v := range vectors {
			out = append(out, NormalizeVector(FitDimension(v, w.cfg.Dimension)))
		}
	}
	return out, nil
}

// writeBatch commits one batch, retrying transient store errors with
// backoff. Referential and fatal errors stop the retry loop immediately.
func (w *Worker) writeBatch(ctx context.Context, batch *ReviewBatch, vectors [][]float32) (int, []store.Skipped, error) {
	var written int
	var skipped []store.Skipped

	err := RetryWithBackoff(ctx, func() error {
		wctx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
		defer cancel()

		var err error
		written, skipped, err = w.writer.InsertReviews(wctx, batch.Records, vectors)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return Permanent(err)
	}, w.cfg.MaxWriteAttempts, w.cfg.RetryBaseDelay)

	if err != nil {
		return 0, nil, err
	}
	return written, skipped, nil
}

func (w *Worker) saveCursor(ctx context.Context, offset int64, result *WorkerResult) error {
	if w.cursors == nil {
		return nil
	}
	return w.cursors.Save(ctx, w.runKey, &checkpoint.Cursor{
		ShardID:   w.shard.ID,
		Offset:    offset,
		Processed: result.Processed,
		Skipped:   result.Skipped,
	})
}
