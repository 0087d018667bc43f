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


// Package search ranks a user's notes against a free-text question.
//
// Ranking happens in three steps:
//   - ParseFilters turns the question into soft hints (tags, priority, due,
//     focus terms) unioned with any caller filters
//   - ApplyDateFilter drops notes outside the caller's date range, the only
//     hard filter
//   - Ranker embeds every candidate's canonical block plus the question and
//     scores each candidate as cosine similarity plus capped boosts
//
// Every boost is recorded on the candidate so callers can explain why a note
// ranked where it did. Boost sizes and list limits live in Policy.
package search
