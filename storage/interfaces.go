package storage

import (
	"context"

	"github.com/poiesic/memvault/core"
)

// BodySwap describes a conditional replacement of a note body. The swap only
// applies while the stored body still equals Old.
type BodySwap struct {
	ID  core.ID
	Old string
	New string
}

// NoteRepository persists notes. Bodies are stored exactly as given; callers
// are responsible for encrypting them first.
// Implementations must be thread-safe and support concurrent access.
type NoteRepository interface {
	// AddNotes stores new notes. IDs are always generated from a sequence.
	// CreatedAt is set if zero and UpdatedAt is set to CreatedAt.
	// Returns the notes with IDs and timestamps populated.
	AddNotes(ctx context.Context, notes ...*core.Note) ([]*core.Note, error)

	// UpdateNotes replaces existing notes and refreshes UpdatedAt.
	// Returns ErrNotFound if any note doesn't exist.
	UpdateNotes(ctx context.Context, notes ...*core.Note) ([]*core.Note, error)

	// DeleteNotes removes notes and their index entries.
	// Returns ErrNotFound if any note doesn't exist.
	DeleteNotes(ctx context.Context, ids ...core.ID) error

	// GetNote retrieves a single note by ID.
	// Returns ErrNotFound if the note doesn't exist.
	GetNote(ctx context.Context, id core.ID) (*core.Note, error)

	// ListNotesByOwner returns every note of owner, newest CreatedAt first.
	ListNotesByOwner(ctx context.Context, owner core.OwnerID) ([]*core.Note, error)

	// ScanNotes returns up to limit notes with IDs greater than after, in ID
	// order. Pass 0 to start from the beginning.
	ScanNotes(ctx context.Context, after core.ID, limit int) ([]*core.Note, error)

	// CountNotes returns the number of stored notes.
	CountNotes(ctx context.Context) (int, error)

	// SwapBodies applies each swap whose note still carries the expected body
	// and returns how many were applied. Missing or edited notes are skipped.
	SwapBodies(ctx context.Context, swaps ...BodySwap) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
