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


// Package ai provides abstractions for the AI services used by memvault.
//
// Two capabilities are consumed: an Embedder that turns notes and questions
// into vectors for ranking, and a Generator that writes the final answer
// from a prompt. AIProvider bundles both.
//
// Implementations live in sub-packages:
//
//   - ai/openai: OpenAI-compatible APIs via langchaingo
//   - ai/mock: test doubles with deterministic defaults
//
// Public constructors in ai/openai return interfaces. Mock constructors
// return concrete types so tests can inject behavior and read call counts.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIToken(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedDocuments(ctx, blocks)
package ai
