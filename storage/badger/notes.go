package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/storage"
)

// NoteRepository implements storage.NoteRepository for BadgerDB.
type NoteRepository struct {
	backend     *Backend
	idSeq       *badger.Sequence
	ownsBackend bool
}

var _ storage.NoteRepository = (*NoteRepository)(nil)

// NewRepository opens a badger database at path and returns a repository
// that closes it on Close.
func NewRepository(path string) (storage.NoteRepository, error) {
	return openRepository(path, false)
}

func openRepository(path string, inMemory bool) (*NoteRepository, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	repo, err := NewNoteRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	repo.ownsBackend = true
	return repo, nil
}

// NewNoteRepository creates a NoteRepository over an open backend. The
// backend stays owned by the caller.
func NewNoteRepository(backend *Backend) (*NoteRepository, error) {
	idSeq, err := backend.GetSequence(noteIDSeq)
	if err != nil {
		return nil, err
	}

	return &NoteRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence, and the backend if the repository opened it.
func (r *NoteRepository) Close() error {
	err := r.idSeq.Release()
	if r.ownsBackend {
		err = errors.Join(err, r.backend.Close())
	}
	return err
}

func (r *NoteRepository) nextID() (core.ID, error) {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = r.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

// AddNotes adds one or more notes to storage.
func (r *NoteRepository) AddNotes(ctx context.Context, notes ...*core.Note) ([]*core.Note, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, note := range notes {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := r.nextID()
			if err != nil {
				return err
			}
			note.Id = id

			if note.CreatedAt.IsZero() {
				note.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
			}
			note.UpdatedAt = note.CreatedAt

			if err := r.writeNote(tx, note); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// UpdateNotes replaces existing notes.
func (r *NoteRepository) UpdateNotes(ctx context.Context, notes ...*core.Note) ([]*core.Note, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, note := range notes {
			if err := ctx.Err(); err != nil {
				return err
			}
			old, err := r.readNote(tx, makeNoteKey(note.Id))
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			// Re-key the owner index if either component moved
			if old.Owner != note.Owner || !old.CreatedAt.Equal(note.CreatedAt) {
				if err := tx.Delete(makeOwnerKey(old.Owner, old.CreatedAt, old.Id)); err != nil {
					return err
				}
			}

			note.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
			if err := r.writeNote(tx, note); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// DeleteNotes removes notes by their IDs.
func (r *NoteRepository) DeleteNotes(ctx context.Context, ids ...core.ID) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeNoteKey(id)
			note, err := r.readNote(tx, key)
			if err != nil {
				return err
			}
			if note == nil {
				return storage.ErrNotFound
			}
			if err := tx.Delete(makeOwnerKey(note.Owner, note.CreatedAt, note.Id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetNote retrieves a single note by ID.
func (r *NoteRepository) GetNote(ctx context.Context, id core.ID) (*core.Note, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var result *core.Note
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readNote(tx, makeNoteKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListNotesByOwner walks the owner index backwards so the newest note comes
// first.
func (r *NoteRepository) ListNotesByOwner(ctx context.Context, owner core.OwnerID) ([]*core.Note, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	results := []*core.Note{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = makeOwnerPrefix(owner)

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeOwnerSeekEnd(owner)); iter.ValidForPrefix(opts.Prefix); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			note, err := r.readNote(tx, makeNoteKey(id))
			if err != nil {
				return err
			}
			// the prefix also matches owners that extend this one
			if note != nil && note.Owner == owner {
				results = append(results, note)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ScanNotes returns up to limit notes with IDs greater than after.
func (r *NoteRepository) ScanNotes(ctx context.Context, after core.ID, limit int) ([]*core.Note, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var results []*core.Note
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(notePrefix)

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeNoteKey(after)); iter.ValidForPrefix(opts.Prefix) && len(results) < limit; iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			if noteIDFromKey(item.Key()) <= after {
				continue
			}
			var note *core.Note
			if err := item.Value(func(val []byte) error {
				var err error
				note, err = storage.UnmarshalNote(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, note)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountNotes counts primary keys without loading values.
func (r *NoteRepository) CountNotes(ctx context.Context) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(notePrefix)

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return ctx.Err()
	}, false)
	return count, err
}

// SwapBodies applies the swaps in a single transaction. A concurrent write
// to one of the notes surfaces as badger.ErrConflict on commit.
func (r *NoteRepository) SwapBodies(ctx context.Context, swaps ...storage.BodySwap) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	applied := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, swap := range swaps {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := makeNoteKey(swap.ID)
			note, err := r.readNote(tx, key)
			if err != nil {
				return err
			}
			if note == nil || note.Body != swap.Old {
				continue
			}
			note.Body = swap.New
			if err := tx.Set(key, storage.MarshalNote(note)); err != nil {
				return err
			}
			applied++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return applied, nil
}

// writeNote stores the primary record and its owner index entry.
func (r *NoteRepository) writeNote(tx *badger.Txn, note *core.Note) error {
	if err := tx.Set(makeNoteKey(note.Id), storage.MarshalNote(note)); err != nil {
		return err
	}
	return tx.Set(makeOwnerKey(note.Owner, note.CreatedAt, note.Id), storage.MarshalID(note.Id))
}

// readNote returns nil, nil when the key is absent.
func (r *NoteRepository) readNote(tx *badger.Txn, key []byte) (*core.Note, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var note *core.Note
	err = item.Value(func(val []byte) error {
		var err error
		note, err = storage.UnmarshalNote(val)
		return err
	})
	return note, err
}

