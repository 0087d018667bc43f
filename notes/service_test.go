package notes

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/envelope"
	"github.com/poiesic/memvault/storage"
	"github.com/poiesic/memvault/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMaster(seed byte) []byte {
	key := make([]byte, envelope.KeySize)
	for i := range key {
		key[i] = seed + byte(i)
	}
	return key
}

func setup(t *testing.T) (*Service, storage.NoteRepository) {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	sealer, err := envelope.NewSealer(testMaster(0))
	require.NoError(t, err)

	svc, err := NewService(repo, sealer)
	require.NoError(t, err)
	return svc, repo
}

func TestNewService_Requirements(t *testing.T) {
	sealer, err := envelope.NewSealer(testMaster(0))
	require.NoError(t, err)
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	_, err = NewService(nil, sealer)
	assert.Equal(t, ErrRepositoryRequired, err)

	_, err = NewService(repo, nil)
	assert.Equal(t, ErrSealerRequired, err)
}

func TestCreate_StoresCiphertext(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &core.Note{Owner: "alice", Title: "Bank", Body: "PIN is 1234"})
	require.NoError(t, err)
	assert.NotZero(t, created.Id)
	assert.Equal(t, "PIN is 1234", created.Body)
	assert.Equal(t, core.PriorityMedium, created.Priority)

	raw, err := repo.GetNote(ctx, created.Id)
	require.NoError(t, err)
	assert.True(t, envelope.IsCiphertext(raw.Body))
	assert.NotContains(t, raw.Body, "1234")
	assert.Equal(t, "Bank", raw.Title)

	got, err := svc.Get(ctx, "alice", created.Id)
	require.NoError(t, err)
	assert.Equal(t, "PIN is 1234", got.Body)
	assert.False(t, got.Redacted)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name string
		note *core.Note
		want error
	}{
		{"missing owner", &core.Note{Title: "t", Body: "b"}, core.ErrInvalidOwner},
		{"owner with NUL", &core.Note{Owner: "alice\x00mallory", Title: "t", Body: "b"}, core.ErrInvalidOwner},
		{"missing title", &core.Note{Owner: "a", Body: "b"}, core.ErrEmptyTitle},
		{"missing body", &core.Note{Owner: "a", Title: "t"}, core.ErrEmptyBody},
		{"bad priority", &core.Note{Owner: "a", Title: "t", Body: "b", Priority: 9}, core.ErrInvalidPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.note)
			assert.ErrorIs(t, err, core.ErrInvalidNote)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGet_OtherOwnerIsNotFound(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &core.Note{Owner: "alice", Title: "t", Body: "b"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "bob", created.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(ctx, "bob", created.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Get(ctx, "", created.Id)
	assert.ErrorIs(t, err, core.ErrInvalidOwner)
}

func TestUpdate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &core.Note{Owner: "alice", Title: "t", Body: "old"})
	require.NoError(t, err)

	edit := created.Clone()
	edit.Body = "new body"
	edit.Priority = core.PriorityHigh
	edit.CreatedAt = time.Time{}

	updated, err := svc.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "new body", updated.Body)
	assert.Equal(t, core.PriorityHigh, updated.Priority)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	raw, err := repo.GetNote(ctx, created.Id)
	require.NoError(t, err)
	assert.True(t, envelope.IsCiphertext(raw.Body))

	edit.Owner = "bob"
	_, err = svc.Update(ctx, edit)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdate_RedactedNoteKeepsCiphertext(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	other, err := envelope.NewSealer(testMaster(100))
	require.NoError(t, err)
	foreign, err := other.Encrypt("recoverable", "alice")
	require.NoError(t, err)
	added, err := repo.AddNotes(ctx, &core.Note{Owner: "alice", Title: "broken", Body: foreign})
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].Redacted)

	edit := list[0].Clone()
	edit.Title = "renamed"
	_, err = svc.Update(ctx, edit)
	assert.ErrorIs(t, err, ErrRedacted)

	raw, err := repo.GetNote(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, foreign, raw.Body)
	assert.Equal(t, "broken", raw.Title)
	body, err := other.Decrypt(raw.Body, "alice")
	require.NoError(t, err)
	assert.Equal(t, "recoverable", body)

	// a fresh body replaces the lost one
	edit.Body = "rewritten"
	updated, err := svc.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", updated.Body)

	got, err := svc.Get(ctx, "alice", added[0].Id)
	require.NoError(t, err)
	assert.False(t, got.Redacted)
	assert.Equal(t, "rewritten", got.Body)
}

func TestUpdate_StandInTextOnReadableNote(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &core.Note{Owner: "alice", Title: "t", Body: "b"})
	require.NoError(t, err)

	edit := created.Clone()
	edit.Body = RedactedBody
	updated, err := svc.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, RedactedBody, updated.Body)
}

func TestDelete(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &core.Note{Owner: "alice", Title: "t", Body: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "alice", created.Id))
	_, err = svc.Get(ctx, "alice", created.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestList_RedactsUndecryptableNotes(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, &core.Note{Owner: "alice", Title: "good", Body: "secret", CreatedAt: base})
	require.NoError(t, err)

	// sealed under a different master key, as if the key had been rotated
	other, err := envelope.NewSealer(testMaster(100))
	require.NoError(t, err)
	foreign, err := other.Encrypt("lost", "alice")
	require.NoError(t, err)
	_, err = repo.AddNotes(ctx, &core.Note{Owner: "alice", Title: "broken", Body: foreign, CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	// legacy plaintext passes through
	_, err = repo.AddNotes(ctx, &core.Note{Owner: "alice", Title: "legacy", Body: "plain", CreatedAt: base.Add(-time.Hour)})
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "broken", list[0].Title)
	assert.True(t, list[0].Redacted)
	assert.Equal(t, RedactedBody, list[0].Body)

	assert.Equal(t, "good", list[1].Title)
	assert.Equal(t, "secret", list[1].Body)
	assert.False(t, list[1].Redacted)

	assert.Equal(t, "legacy", list[2].Title)
	assert.Equal(t, "plain", list[2].Body)
}

func TestList_ScopedToExactOwner(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &core.Note{Owner: "alice", Title: "mine", Body: "alice body"})
	require.NoError(t, err)

	// written below the service, which refuses such owners
	sealer, err := envelope.NewSealer(testMaster(0))
	require.NoError(t, err)
	body, err := sealer.Encrypt("bob's private body", "alice\x00mallory")
	require.NoError(t, err)
	_, err = repo.AddNotes(ctx, &core.Note{Owner: "alice\x00mallory", Title: "theirs", Body: body})
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Title)
	assert.Equal(t, core.OwnerID("alice"), list[0].Owner)

	_, err = svc.List(ctx, "alice\x00mallory")
	assert.ErrorIs(t, err, core.ErrInvalidOwner)
}

func TestList_Empty(t *testing.T) {
	svc, _ := setup(t)

	list, err := svc.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRemoveTag(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &core.Note{Owner: "alice", Title: "t", Body: "b", Tags: []string{"work", "home"}})
	require.NoError(t, err)
	raw, err := repo.GetNote(ctx, created.Id)
	require.NoError(t, err)

	updated, err := svc.RemoveTag(ctx, "alice", created.Id, "Work")
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, updated.Tags)
	assert.Equal(t, "b", updated.Body)

	after, err := repo.GetNote(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, raw.Body, after.Body)

	_, err = svc.RemoveTag(ctx, "bob", created.Id, "home")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
