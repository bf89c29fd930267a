package ingest

import (
	"fmt"
	"strings"
)

// Status is a shard's terminal outcome.
type Status int

const (
	// StatusSuccess means the shard completed with no skipped records.
	StatusSuccess Status = iota + 1
	// StatusPartiallyFailed means the shard completed but skipped records.
	StatusPartiallyFailed
	// StatusFailed means the shard stopped before exhausting its range.
	StatusFailed
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusPartiallyFailed:
		return "PartiallyFailed"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ShardStatus tracks a shard's progress through the run.
type ShardStatus int

const (
	ShardPending ShardStatus = iota + 1
	ShardInProgress
	ShardDone
	ShardFailed
)

// String returns a human-readable shard status name.
func (s ShardStatus) String() string {
	switch s {
	case ShardPending:
		return "Pending"
	case ShardInProgress:
		return "InProgress"
	case ShardDone:
		return "Done"
	case ShardFailed:
		return "Failed"
	default:
		return fmt.Sprintf("ShardStatus(%d)", int(s))
	}
}

// WorkerResult is one shard's outcome.
type WorkerResult struct {
	ShardID   int
	Processed int64
	Skipped   int64
	Errors    []RecordError
	Status    Status
	Err       error // the shard-fatal error when Status is StatusFailed
}

// Report is the consolidated outcome of a run.
type Report struct {
	MetadataProcessed int64
	MetadataSkipped   int64
	Processed         int64
	Skipped           int64
	Shards            []*WorkerResult
}

// Succeeded reports whether every shard reached a terminal non-failed
// status. Skipped records sanctioned by the resilient policy do not count
// as failure.
func (r *Report) Succeeded() bool {
	for _, shard := range r.Shards {
		if shard.Status == StatusFailed {
			return false
		}
	}
	return true
}

// Summary renders the report as a multi-line string for the CLI.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "metadata: %d processed, %d skipped\n", r.MetadataProcessed, r.MetadataSkipped)
	fmt.Fprintf(&b, "reviews: %d processed, %d skipped\n", r.Processed, r.Skipped)
	for _, shard := range r.Shards {
		fmt.Fprintf(&b, "shard %d: %s, %d processed, %d skipped",
			shard.ShardID, shard.Status, shard.Processed, shard.Skipped)
		if shard.Err != nil {
			fmt.Fprintf(&b, ", error: %v", shard.Err)
		}
		b.WriteString("\n")
		for _, recErr := range shard.Errors {
			fmt.Fprintf(&b, "  %s\n", recErr)
		}
	}
	return b.String()
}
