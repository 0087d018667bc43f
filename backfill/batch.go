package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/envelope"
	"github.com/poiesic/memvault/storage"
)

// BatchResult counts what happened to one page of notes.
type BatchResult struct {
	Scanned   int
	Sealed    int // already carried the envelope prefix
	Empty     int
	Unowned   int
	Pending   int // plaintext bodies eligible for encryption
	Encrypted int
	Conflicts int // edited between scan and swap
}

func (r *BatchResult) add(o BatchResult) {
	r.Scanned += o.Scanned
	r.Sealed += o.Sealed
	r.Empty += o.Empty
	r.Unowned += o.Unowned
	r.Pending += o.Pending
	r.Encrypted += o.Encrypted
	r.Conflicts += o.Conflicts
}

// BatchProcessor encrypts the plaintext bodies of one page of notes.
type BatchProcessor struct {
	repo           storage.NoteRepository
	sealer         *envelope.Sealer
	pool           *ants.Pool
	maxRetries     int
	retryBaseDelay time.Duration
	dryRun         bool
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor. Encryption runs on pool;
// the store write is retried up to maxRetries times with exponential
// backoff starting at retryBaseDelay.
func NewBatchProcessor(repo storage.NoteRepository, sealer *envelope.Sealer, pool *ants.Pool, maxRetries int, retryBaseDelay time.Duration, dryRun bool, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		repo:           repo,
		sealer:         sealer,
		pool:           pool,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		dryRun:         dryRun,
		logger:         logger,
	}
}

// Process seals every eligible body in notes and swaps it in. In dry-run
// mode nothing is encrypted or written; only the counts are filled.
func (bp *BatchProcessor) Process(ctx context.Context, notes []*core.Note) (BatchResult, error) {
	res := BatchResult{Scanned: len(notes)}

	var pending []*core.Note
	for _, n := range notes {
		switch {
		case n.Body == "":
			res.Empty++
		case envelope.IsCiphertext(n.Body):
			res.Sealed++
		case n.Owner == "":
			res.Unowned++
		default:
			pending = append(pending, n)
		}
	}
	res.Pending = len(pending)
	if len(pending) == 0 || bp.dryRun {
		return res, nil
	}

	swaps, err := bp.seal(pending)
	if err != nil {
		return res, err
	}

	var applied int
	err = RetryWithBackoff(ctx, bp.logger, func() error {
		var err error
		applied, err = bp.repo.SwapBodies(ctx, swaps...)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return res, fmt.Errorf("failed to store sealed bodies after %d attempts: %w", bp.maxRetries, err)
	}

	res.Encrypted = applied
	res.Conflicts = len(swaps) - applied
	return res, nil
}

// seal encrypts the pending bodies concurrently on the pool.
func (bp *BatchProcessor) seal(pending []*core.Note) ([]storage.BodySwap, error) {
	swaps := make([]storage.BodySwap, len(pending))
	errs := make([]error, len(pending))

	var wg sync.WaitGroup
	for i, n := range pending {
		wg.Add(1)
		err := bp.pool.Submit(func() {
			defer wg.Done()
			sealed, err := bp.sealer.Encrypt(n.Body, string(n.Owner))
			if err != nil {
				errs[i] = err
				return
			}
			swaps[i] = storage.BodySwap{ID: n.Id, Old: n.Body, New: sealed}
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to seal note %s: %w", pending[i].Id, err)
		}
	}
	return swaps, nil
}
