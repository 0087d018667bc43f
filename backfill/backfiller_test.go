package backfill

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/envelope"
	"github.com/poiesic/memvault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSealer(t *testing.T) *envelope.Sealer {
	t.Helper()
	key := make([]byte, envelope.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	s, err := envelope.NewSealer(key)
	require.NoError(t, err)
	return s
}

func testConfig() *Config {
	return &Config{
		BatchSize:      4,
		ReportInterval: 4,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
		Workers:        2,
	}
}

// mixedCorpus seeds ten notes: three sealed (all owner-0), one empty and six
// plaintext.
func mixedCorpus(t *testing.T, repo storage.NoteRepository, sealer *envelope.Sealer) {
	t.Helper()
	seed(t, repo, 10, func(i int) string {
		switch {
		case i == 9:
			return ""
		case i%3 == 0:
			body, err := sealer.Encrypt("already sealed", "owner-0")
			require.NoError(t, err)
			return body
		default:
			return "plaintext"
		}
	})
}

func TestNewBackfiller_Requirements(t *testing.T) {
	_, err := NewBackfiller(nil, testSealer(t), nil, nil)
	assert.Equal(t, ErrRepositoryRequired, err)

	_, err = NewBackfiller(newTestRepo(t), nil, nil, nil)
	assert.Equal(t, ErrSealerRequired, err)
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 500, c.BatchSize)
	assert.GreaterOrEqual(t, c.Workers, 1)
	assert.False(t, c.DryRun)
}

func TestBackfill_EncryptsPlaintext(t *testing.T) {
	repo := newTestRepo(t)
	sealer := testSealer(t)
	mixedCorpus(t, repo, sealer)

	var out bytes.Buffer
	b, err := NewBackfiller(repo, sealer, testConfig(), &out)
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, report.Scanned)
	assert.Equal(t, 3, report.Sealed)
	assert.Equal(t, 1, report.Empty)
	assert.Equal(t, 6, report.Pending)
	assert.Equal(t, 6, report.Encrypted)
	assert.Zero(t, report.Conflicts)
	assert.Contains(t, out.String(), "Backfill complete. Encrypted 6 notes")

	notes, err := repo.ScanNotes(context.Background(), 0, 100)
	require.NoError(t, err)
	for _, n := range notes {
		if n.Body == "" {
			continue
		}
		require.True(t, envelope.IsCiphertext(n.Body), "note %s left in plaintext", n.Id)
		plain, err := sealer.Decrypt(n.Body, string(n.Owner))
		require.NoError(t, err)
		assert.Contains(t, []string{"plaintext", "already sealed"}, plain)
	}
}

func TestBackfill_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	sealer := testSealer(t)
	mixedCorpus(t, repo, sealer)

	b, err := NewBackfiller(repo, sealer, testConfig(), nil)
	require.NoError(t, err)

	_, err = b.Run(context.Background())
	require.NoError(t, err)
	before, err := repo.ScanNotes(context.Background(), 0, 100)
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Pending)
	assert.Zero(t, report.Encrypted)
	assert.Equal(t, 9, report.Sealed)

	after, err := repo.ScanNotes(context.Background(), 0, 100)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Body, after[i].Body)
	}
}

func TestBackfill_DryRun(t *testing.T) {
	repo := newTestRepo(t)
	sealer := testSealer(t)
	mixedCorpus(t, repo, sealer)

	cfg := testConfig()
	cfg.DryRun = true
	var out bytes.Buffer
	b, err := NewBackfiller(repo, sealer, cfg, &out)
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 6, report.Pending)
	assert.Zero(t, report.Encrypted)
	assert.Contains(t, out.String(), "6 of 10 notes would be encrypted")

	notes, err := repo.ScanNotes(context.Background(), 0, 100)
	require.NoError(t, err)
	plain := 0
	for _, n := range notes {
		if n.Body == "plaintext" {
			plain++
		}
	}
	assert.Equal(t, 6, plain)
}

func TestBackfill_EmptyStore(t *testing.T) {
	var out bytes.Buffer
	b, err := NewBackfiller(newTestRepo(t), testSealer(t), testConfig(), &out)
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
	assert.Contains(t, out.String(), "No notes found")
}

// racingRepo edits one body right before the swap lands.
type racingRepo struct {
	storage.NoteRepository
	victim core.ID
}

func (r *racingRepo) SwapBodies(ctx context.Context, swaps ...storage.BodySwap) (int, error) {
	n, err := r.GetNote(ctx, r.victim)
	if err != nil {
		return 0, err
	}
	n.Body = "edited by user"
	if _, err := r.UpdateNotes(ctx, n); err != nil {
		return 0, err
	}
	return r.NoteRepository.SwapBodies(ctx, swaps...)
}

func TestBackfill_SkipsConcurrentEdits(t *testing.T) {
	inner := newTestRepo(t)
	seed(t, inner, 3, func(i int) string { return "plaintext" })
	notes, err := inner.ScanNotes(context.Background(), 0, 10)
	require.NoError(t, err)

	repo := &racingRepo{NoteRepository: inner, victim: notes[1].Id}
	b, err := NewBackfiller(repo, testSealer(t), testConfig(), nil)
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Encrypted)
	assert.Equal(t, 1, report.Conflicts)

	edited, err := inner.GetNote(context.Background(), notes[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "edited by user", edited.Body)
}

// flakyRepo fails the first swap attempts.
type flakyRepo struct {
	storage.NoteRepository
	failures int
	calls    int
}

func (r *flakyRepo) SwapBodies(ctx context.Context, swaps ...storage.BodySwap) (int, error) {
	r.calls++
	if r.calls <= r.failures {
		return 0, errors.New("transaction conflict")
	}
	return r.NoteRepository.SwapBodies(ctx, swaps...)
}

func TestBackfill_RetriesStoreWrites(t *testing.T) {
	inner := newTestRepo(t)
	seed(t, inner, 2, func(i int) string { return "plaintext" })

	repo := &flakyRepo{NoteRepository: inner, failures: 2}
	b, err := NewBackfiller(repo, testSealer(t), testConfig(), nil)
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Encrypted)
	assert.Equal(t, 3, repo.calls)
}

func TestBackfill_GivesUpAfterMaxRetries(t *testing.T) {
	inner := newTestRepo(t)
	seed(t, inner, 2, func(i int) string { return "plaintext" })

	repo := &flakyRepo{NoteRepository: inner, failures: 10}
	b, err := NewBackfiller(repo, testSealer(t), testConfig(), nil)
	require.NoError(t, err)

	_, err = b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction conflict")
	assert.Equal(t, 3, repo.calls)
}
