package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// ErrCorruptRecord is returned when an encoded record declares more data than
// it carries.
var ErrCorruptRecord = errors.New("corrupt record")

// IDMUS encodes an ID as a varint.
var IDMUS = idMUS{}

// NoteMUS encodes a Note. Field order is part of the on-disk format; append
// new fields at the end only. Redacted is not encoded.
var NoteMUS = noteMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type noteMUS struct{}

func (noteMUS) Marshal(v Note, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(string(v.Owner), bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Body, bs[n:])
	n += varint.Int.Marshal(len(v.Tags), bs[n:])
	for _, tag := range v.Tags {
		n += ord.String.Marshal(tag, bs[n:])
	}
	n += varint.Int.Marshal(int(v.Priority), bs[n:])
	n += ord.Bool.Marshal(v.SetDueDate, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.DueDate), bs[n:])
	n += ord.Bool.Marshal(v.Complete, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.CreatedAt), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.UpdatedAt), bs[n:])
	return n
}

func (noteMUS) Unmarshal(bs []byte) (v Note, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}

	var owner string
	owner, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Owner = OwnerID(owner)

	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	v.Body, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	var count int
	count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	// every tag takes at least one byte
	if count < 0 || count > len(bs)-n {
		err = ErrCorruptRecord
		return
	}
	if count > 0 {
		v.Tags = make([]string, count)
		for i := range v.Tags {
			v.Tags[i], n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}

	var priority int
	priority, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Priority = Priority(priority)

	v.SetDueDate, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DueDate = microToTime(micros)

	v.Complete, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt = microToTime(micros)

	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt = microToTime(micros)
	return
}

func (noteMUS) Size(v Note) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(string(v.Owner))
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Body)
	size += varint.Int.Size(len(v.Tags))
	for _, tag := range v.Tags {
		size += ord.String.Size(tag)
	}
	size += varint.Int.Size(int(v.Priority))
	size += ord.Bool.Size(v.SetDueDate)
	size += varint.Int64.Size(timeToMicro(v.DueDate))
	size += ord.Bool.Size(v.Complete)
	size += varint.Int64.Size(timeToMicro(v.CreatedAt))
	size += varint.Int64.Size(timeToMicro(v.UpdatedAt))
	return size
}

func (s noteMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// Zero times are stored as 0 so they survive the round trip as IsZero.
func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}
