package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressReportsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 100, 10)
	p.Start()

	p.Add(5, 0)
	assert.Empty(t, buf.String(), "below interval, no report yet")

	p.Add(5, 0)
	assert.Contains(t, buf.String(), "10/100")
}

func TestProgressCountsSkipped(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 10, 1)
	p.Start()

	p.Add(3, 2)
	out := buf.String()
	assert.Contains(t, out, "3/10")
	assert.Contains(t, out, "2 skipped")
}

func TestProgressFinishPrintsNewline(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 10, 100)
	p.Start()
	p.Add(10, 0)
	p.Finish()

	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "10/10")
}

func TestProgressIgnoredBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 10, 1)

	p.Add(5, 0)
	p.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, p.Elapsed())
}
