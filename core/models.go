package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

type ID uint64

func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID the way it is shown to users and cited by the model.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID is the inverse of ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// OwnerID identifies the account that owns a note. Keys are derived from it,
// so it must be stable for the lifetime of the account.
type OwnerID string

type Priority int

const (
	// PriorityUnset is only seen on legacy records and on input that did not
	// specify a priority.
	PriorityUnset Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

// DefaultPriority is applied to notes written without a priority.
const DefaultPriority = PriorityMedium

// Label returns "low", "med" or "high". Unset reads as the default.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "med"
	}
}

// ParsePriority maps a label back to its ordinal.
func ParsePriority(label string) (Priority, bool) {
	switch label {
	case "low":
		return PriorityLow, true
	case "med", "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	}
	return PriorityUnset, false
}

type Note struct {
	Id         ID
	Owner      OwnerID
	Title      string
	Body       string // ciphertext envelope at rest, plaintext in memory
	Tags       []string
	Priority   Priority
	SetDueDate bool
	DueDate    time.Time
	Complete   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Redacted marks a stand-in for a note whose body could not be decrypted.
	// It is never persisted.
	Redacted bool
}

// HasDueDate reports whether the note carries a usable due date.
func (n *Note) HasDueDate() bool {
	return n.SetDueDate && !n.DueDate.IsZero()
}

// Clone returns a copy that does not share the tag slice.
func (n *Note) Clone() *Note {
	c := *n
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	return &c
}
