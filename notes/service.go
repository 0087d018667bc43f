package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/envelope"
	"github.com/poiesic/memvault/storage"
)

// RedactedBody replaces the body of a note that could not be decrypted.
const RedactedBody = "[encrypted memory unavailable]"

// Service is the only path between callers and the note store. Bodies are
// sealed under the owner's key before they are written and opened after they
// are read.
type Service struct {
	repo   storage.NoteRepository
	sealer *envelope.Sealer
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "notes")
		return nil
	}
}

// NewService creates a note service.
func NewService(repo storage.NoteRepository, sealer *envelope.Sealer, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if sealer == nil {
		return nil, ErrSealerRequired
	}

	s := &Service{
		repo:   repo,
		sealer: sealer,
		logger: slog.Default().With("component", "notes"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Create validates and stores a new note. The returned note carries the
// assigned ID and timestamps and the plaintext body.
func (s *Service) Create(ctx context.Context, note *core.Note) (*core.Note, error) {
	if err := core.ValidateNote(note); err != nil {
		return nil, err
	}

	sealed, err := s.seal(note)
	if err != nil {
		return nil, err
	}
	added, err := s.repo.AddNotes(ctx, sealed)
	if err != nil {
		return nil, err
	}

	out := added[0].Clone()
	out.Body = note.Body
	s.logger.Debug("created note", "id", out.Id, "owner", out.Owner)
	return out, nil
}

// Update replaces the editable fields of an existing note. The caller's Id
// and Owner select the note; CreatedAt is kept from the stored record.
// A note whose body cannot be decrypted only accepts a new body; sending the
// redacted stand-in back returns ErrRedacted and leaves the ciphertext alone.
func (s *Service) Update(ctx context.Context, note *core.Note) (*core.Note, error) {
	if err := core.ValidateNote(note); err != nil {
		return nil, err
	}

	stored, err := s.owned(ctx, note.Owner, note.Id)
	if err != nil {
		return nil, err
	}
	if note.Body == RedactedBody {
		current, err := s.open(stored)
		if err != nil {
			return nil, err
		}
		if current.Redacted {
			return nil, fmt.Errorf("%w: note %s", ErrRedacted, note.Id)
		}
	}

	sealed, err := s.seal(note)
	if err != nil {
		return nil, err
	}
	sealed.CreatedAt = stored.CreatedAt

	updated, err := s.repo.UpdateNotes(ctx, sealed)
	if err != nil {
		return nil, err
	}

	out := updated[0].Clone()
	out.Body = note.Body
	return out, nil
}

// Get returns one decrypted note. Notes of other owners are reported as
// storage.ErrNotFound.
func (s *Service) Get(ctx context.Context, owner core.OwnerID, id core.ID) (*core.Note, error) {
	stored, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return s.open(stored)
}

// Delete removes a note owned by owner.
func (s *Service) Delete(ctx context.Context, owner core.OwnerID, id core.ID) error {
	if _, err := s.owned(ctx, owner, id); err != nil {
		return err
	}
	return s.repo.DeleteNotes(ctx, id)
}

// List returns every note of owner, newest first. Notes that fail to decrypt
// are included as redacted stand-ins.
func (s *Service) List(ctx context.Context, owner core.OwnerID) ([]*core.Note, error) {
	if err := core.ValidateOwner(owner); err != nil {
		return nil, err
	}

	stored, err := s.repo.ListNotesByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Note, 0, len(stored))
	for _, n := range stored {
		if n.Owner != owner {
			continue
		}
		opened, err := s.open(n)
		if err != nil {
			return nil, err
		}
		out = append(out, opened)
	}
	return out, nil
}

// RemoveTag drops tag from a note. The stored body is left untouched, so
// this works on notes that cannot currently be decrypted.
func (s *Service) RemoveTag(ctx context.Context, owner core.OwnerID, id core.ID, tag string) (*core.Note, error) {
	stored, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	tag = strings.TrimSpace(tag)
	stored.Tags = slices.DeleteFunc(stored.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})

	updated, err := s.repo.UpdateNotes(ctx, stored)
	if err != nil {
		return nil, err
	}
	return s.open(updated[0])
}

func (s *Service) owned(ctx context.Context, owner core.OwnerID, id core.ID) (*core.Note, error) {
	if err := core.ValidateOwner(owner); err != nil {
		return nil, err
	}

	n, err := s.repo.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Owner != owner {
		return nil, fmt.Errorf("%w: note %s", storage.ErrNotFound, id)
	}
	return n, nil
}

// seal returns a copy of note ready for storage.
func (s *Service) seal(note *core.Note) (*core.Note, error) {
	sealed := note.Clone()
	sealed.Redacted = false
	if sealed.Priority == core.PriorityUnset {
		sealed.Priority = core.DefaultPriority
	}

	body, err := s.sealer.Encrypt(note.Body, string(note.Owner))
	if err != nil {
		return nil, err
	}
	sealed.Body = body
	return sealed, nil
}

// open returns a decrypted copy of a stored note, or a redacted stand-in
// when the envelope cannot be opened.
func (s *Service) open(stored *core.Note) (*core.Note, error) {
	out := stored.Clone()
	body, err := s.sealer.Decrypt(stored.Body, string(stored.Owner))
	if err != nil {
		if !errors.Is(err, envelope.ErrDecryption) {
			return nil, err
		}
		s.logger.Warn("note body could not be decrypted", "id", stored.Id, "err", err)
		out.Body = RedactedBody
		out.Redacted = true
		return out, nil
	}
	out.Body = body
	return out, nil
}
