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


package core

import (
	"fmt"
	"strings"
)

func ValidateNote(note *Note) error {
	if note == nil {
		return fmt.Errorf("%w: note is nil", ErrInvalidNote)
	}

	if err := ValidateOwner(note.Owner); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNote, err)
	}

	if note.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNote, ErrEmptyTitle)
	}

	if note.Body == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNote, ErrEmptyBody)
	}

	if err := ValidatePriority(note.Priority); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNote, err)
	}

	return nil
}

// ValidateOwner rejects empty owners and owners containing NUL. NUL ends the
// owner segment of index keys, so it cannot appear inside one.
func ValidateOwner(owner OwnerID) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	if strings.ContainsRune(string(owner), 0) {
		return fmt.Errorf("%w: contains NUL", ErrInvalidOwner)
	}
	return nil
}

func ValidatePriority(p Priority) error {
	if p < PriorityUnset || p > PriorityHigh {
		return fmt.Errorf("%w: value %d", ErrInvalidPriority, p)
	}
	return nil
}
