package ingest

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker tracks and reports ingestion progress across shards.
// Safe for concurrent use by multiple workers.
type ProgressTracker struct {
	writer         io.Writer
	total          int64
	processed      int64
	skipped        int64
	reportInterval int64
	lastReported   int64
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of records across all shards
// reportInterval: report progress every N records
func NewProgressTracker(writer io.Writer, total, reportInterval int64) *ProgressTracker {
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.processed = 0
	p.skipped = 0
	p.lastReported = 0
}

// Add records a committed batch: processed records plus skipped ones.
func (p *ProgressTracker) Add(processed, skipped int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.processed += processed
	p.skipped += skipped
	if p.processed+p.skipped > p.total {
		p.processed = p.total - p.skipped
	}

	if p.processed+p.skipped-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.processed + p.skipped
	}
}

// Finish prints the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	consumed := p.processed + p.skipped
	rate := float64(consumed) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(consumed) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rIngested: %d/%d (%.1f%%), %d skipped, %.1f records/s",
		p.processed, p.total, percentage, p.skipped, rate)
}
