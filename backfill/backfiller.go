// Copyright 2025 Poiesic Systems
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


package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/envelope"
	"github.com/poiesic/memvault/storage"
)

// Config holds configuration for a backfill run.
type Config struct {
	// BatchSize is the number of notes fetched per page
	BatchSize int

	// ReportInterval is how often to report progress (number of notes)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each store write
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Workers bounds concurrent encryption
	Workers int

	// DryRun counts eligible notes without writing anything
	DryRun bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultBatchSize,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Workers:        max(1, runtime.NumCPU()/2),
	}
}

// Report summarizes a finished run.
type Report struct {
	BatchResult
	Elapsed time.Duration
	DryRun  bool
}

// Backfiller encrypts every legacy plaintext body in a note store.
type Backfiller struct {
	repo     storage.NoteRepository
	sealer   *envelope.Sealer
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Backfiller.
type Option func(*Backfiller) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backfiller) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger.With("component", "backfill")
		return nil
	}
}

// NewBackfiller creates a new backfiller. A nil config selects
// DefaultConfig; progress may be nil to suppress output.
func NewBackfiller(repo storage.NoteRepository, sealer *envelope.Sealer, config *Config, progress io.Writer, opts ...Option) (*Backfiller, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if sealer == nil {
		return nil, ErrSealerRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	b := &Backfiller{
		repo:     repo,
		sealer:   sealer,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "backfill"),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Run executes the backfill. Running it again over the same store finds
// nothing left to encrypt.
func (b *Backfiller) Run(ctx context.Context) (*Report, error) {
	total, err := b.repo.CountNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	report := &Report{DryRun: b.config.DryRun}
	if total == 0 {
		fmt.Fprintf(b.progress, "No notes found in store (0 notes)\n")
		return report, nil
	}

	pool, err := ants.NewPool(max(1, b.config.Workers))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	processor := NewBatchProcessor(b.repo, b.sealer, pool, b.config.MaxRetries, b.config.RetryDelay, b.config.DryRun, b.logger)
	iterator := NewNoteIterator(b.repo, b.config.BatchSize)

	mode := ""
	if b.config.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(b.progress, "Starting envelope backfill of %d notes%s (batch size: %d, key: %s)\n",
		total, mode, iterator.batchSize, b.sealer.Fingerprint())

	tracker := NewProgressTracker(b.progress, total, b.config.ReportInterval)
	tracker.Start()

	err = iterator.ForEach(ctx, func(page []*core.Note) error {
		res, err := processor.Process(ctx, page)
		report.add(res)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		if res.Conflicts > 0 {
			b.logger.Warn("notes changed during backfill, left for next run", "count", res.Conflicts)
		}
		tracker.Add(res.Scanned, res.Encrypted)
		return nil
	})
	if err != nil {
		return report, err
	}

	tracker.Finish()
	report.Elapsed = tracker.Elapsed()

	if b.config.DryRun {
		fmt.Fprintf(b.progress, "Dry run complete. %d of %d notes would be encrypted\n", report.Pending, report.Scanned)
	} else {
		fmt.Fprintf(b.progress, "Backfill complete. Encrypted %d notes in %v (%d already sealed, %d changed concurrently)\n",
			report.Encrypted, report.Elapsed.Round(time.Millisecond), report.Sealed, report.Conflicts)
	}
	b.logger.Info("backfill finished",
		"scanned", report.Scanned,
		"pending", report.Pending,
		"encrypted", report.Encrypted,
		"conflicts", report.Conflicts,
		"dryRun", report.DryRun)
	return report, nil
}
