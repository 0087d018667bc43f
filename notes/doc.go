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


// Package notes stores and retrieves notes with their bodies sealed per
// owner.
//
// Every write encrypts the body with envelope.Sealer before it reaches the
// repository, and every read decrypts it again. A body that fails to decrypt
// does not fail the read: the note comes back with Body set to RedactedBody
// and Redacted set, so one damaged record cannot hide the rest of an owner's
// notes. Ranking code drops redacted notes.
//
// Bodies stored before encryption was introduced carry no envelope prefix and
// are returned as-is; the backfill package migrates them.
package notes
