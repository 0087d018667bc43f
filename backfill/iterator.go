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

	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/storage"
)

// DefaultBatchSize is the number of notes fetched per page.
const DefaultBatchSize = 500

// NoteIterator pages through every stored note in ID order.
type NoteIterator struct {
	repo      storage.NoteRepository
	batchSize int
}

// NewNoteIterator creates a new note iterator. A batchSize <= 0 selects
// DefaultBatchSize.
func NewNoteIterator(repo storage.NoteRepository, batchSize int) *NoteIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &NoteIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with each page of notes. Pages are fetched lazily, so
// notes added behind the cursor are not revisited. Iteration stops on the
// first error from fn or the store, or when ctx is done.
func (it *NoteIterator) ForEach(ctx context.Context, fn func([]*core.Note) error) error {
	var after core.ID
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := it.repo.ScanNotes(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		if err := fn(page); err != nil {
			return err
		}

		after = page[len(page)-1].Id
		if len(page) < it.batchSize {
			return nil
		}
	}
}
