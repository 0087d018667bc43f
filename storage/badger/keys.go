package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/memvault/core"
)

// Key prefixes for different data types. The prefixes must not be prefixes
// of one another.
const (
	notePrefix      = "note:"
	noteOwnerPrefix = "noteown:"
	noteIDSeq       = "noteseq"
)

// makeNoteKey generates the primary key for a note.
// Format: note:<BE id>, so a prefix scan walks notes in ID order.
func makeNoteKey(id core.ID) []byte {
	buf := make([]byte, len(notePrefix)+8)
	offset := copy(buf, notePrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// noteIDFromKey extracts the ID from a primary key.
func noteIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(notePrefix):]))
}

// makeOwnerPrefix generates the owner index prefix.
// Format: noteown:<owner>\x00
func makeOwnerPrefix(owner core.OwnerID) []byte {
	buf := make([]byte, 0, len(noteOwnerPrefix)+len(owner)+1)
	buf = append(buf, noteOwnerPrefix...)
	buf = append(buf, owner...)
	return append(buf, 0)
}

// makeOwnerKey generates a composite key for the owner index.
// Format: noteown:<owner>\x00<BE created micros><BE id>
func makeOwnerKey(owner core.OwnerID, created time.Time, id core.ID) []byte {
	prefix := makeOwnerPrefix(owner)
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// BigEndian keeps lexicographic order equal to chronological order
	binary.BigEndian.PutUint64(buf[offset:], uint64(created.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeOwnerSeekEnd returns a key sorting after every entry of owner, used as
// the starting point of reverse scans.
func makeOwnerSeekEnd(owner core.OwnerID) []byte {
	prefix := makeOwnerPrefix(owner)
	buf := make([]byte, len(prefix)+17)
	offset := copy(buf, prefix)
	for i := offset; i < len(buf); i++ {
		buf[i] = 0xFF
	}
	return buf
}
