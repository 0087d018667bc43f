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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested note does not exist, or
	// belongs to another owner.
	ErrNotFound = errors.New("note not found")

	// ErrStorageClosed indicates that the note store is closed.
	ErrStorageClosed = errors.New("note store is closed")

	// ErrInvalidQuery indicates invalid scan or lookup parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a stored note could not be decoded.
	ErrSerializationFailed = errors.New("note encoding is corrupt")
)
