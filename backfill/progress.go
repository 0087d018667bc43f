package backfill

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single updating progress line for a backfill run.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	scanned        int
	sealed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: number of notes in the store
// reportInterval: report progress every N scanned notes
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval <= 0 {
		reportInterval = 1
	}
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
	p.scanned = 0
	p.sealed = 0
	p.lastReported = 0
}

// Add records a finished page: scanned notes looked at, sealed of them
// newly encrypted.
func (p *ProgressTracker) Add(scanned, sealed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.scanned = min(p.scanned+scanned, p.total)
	p.sealed += sealed

	if p.scanned-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.scanned
	}
}

// Finish prints the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.scanned = p.total
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
	rate := float64(p.scanned) / elapsed.Seconds()

	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.scanned) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rScanned %d/%d (%.1f%%), sealed %d - %.1f notes/s",
		p.scanned, p.total, percentage, p.sealed, rate)
}
