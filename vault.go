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


package memvault

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/memvault/ai"
	"github.com/poiesic/memvault/ai/openai"
	"github.com/poiesic/memvault/answer"
	"github.com/poiesic/memvault/backfill"
	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/envelope"
	"github.com/poiesic/memvault/notes"
	"github.com/poiesic/memvault/search"
	"github.com/poiesic/memvault/storage"
	"github.com/poiesic/memvault/storage/badger"
)

// Vault wires the note store, the envelope sealer and the AI provider into
// the services built on them.
type Vault struct {
	repo        storage.NoteRepository
	sealer      *envelope.Sealer
	provider    ai.AIProvider
	notes       *notes.Service
	ranker      *search.Ranker
	synthesizer *answer.Synthesizer
	logger      *slog.Logger
}

// VaultOption configures a Vault.
type VaultOption func(*vaultOptions)

type vaultOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
	policy   *search.Policy
	logger   *slog.Logger
}

// WithAIConfig selects the OpenAI-compatible endpoints. Ignored when
// WithAIProvider is given.
func WithAIConfig(cfg *ai.Config) VaultOption {
	return func(o *vaultOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider supplies a ready provider, typically a mock in tests. The
// vault closes it on Close.
func WithAIProvider(p ai.AIProvider) VaultOption {
	return func(o *vaultOptions) {
		o.provider = p
	}
}

// WithInMemoryStore keeps notes in memory only; the path is ignored.
func WithInMemoryStore() VaultOption {
	return func(o *vaultOptions) {
		o.inMemory = true
	}
}

// WithPolicy replaces the default ranking policy.
func WithPolicy(p search.Policy) VaultOption {
	return func(o *vaultOptions) {
		o.policy = &p
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) VaultOption {
	return func(o *vaultOptions) {
		o.logger = logger
	}
}

// NewVault opens the store at path and builds the services. masterKey must
// be 32 bytes; anything else fails with envelope.ErrConfiguration before the
// store is touched.
func NewVault(path string, masterKey []byte, opts ...VaultOption) (*Vault, error) {
	options := &vaultOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	sealer, err := envelope.NewSealer(masterKey)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	var repo storage.NoteRepository
	if options.inMemory {
		repo, err = badger.NewMemoryRepository()
	} else {
		repo, err = badger.NewRepository(path)
	}
	if err != nil {
		provider.Close()
		return nil, err
	}

	v := &Vault{
		repo:     repo,
		sealer:   sealer,
		provider: provider,
		logger:   options.logger.With("component", "vault"),
	}
	if err := v.build(options); err != nil {
		v.Close()
		return nil, err
	}

	v.logger.Info("vault opened", "path", path, "inMemory", options.inMemory, "key", sealer.Fingerprint())
	return v, nil
}

func (v *Vault) build(options *vaultOptions) error {
	var err error
	v.notes, err = notes.NewService(v.repo, v.sealer, notes.WithLogger(options.logger))
	if err != nil {
		return err
	}

	rankerOpts := []search.Option{search.WithLogger(options.logger)}
	if options.policy != nil {
		rankerOpts = append(rankerOpts, search.WithPolicy(*options.policy))
	}
	v.ranker, err = search.NewRanker(v.provider.Embedder(), rankerOpts...)
	if err != nil {
		return err
	}

	v.synthesizer, err = answer.NewSynthesizer(v.notes, v.ranker, v.provider.Generator(), answer.WithLogger(options.logger))
	return err
}

// Close releases the provider and the store.
func (v *Vault) Close() error {
	var errs []error
	if err := v.provider.Close(); err != nil {
		v.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := v.repo.Close(); err != nil {
		v.logger.Error("error closing note repository", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Notes returns the note service.
func (v *Vault) Notes() *notes.Service {
	return v.notes
}

// Ranker returns the ranker used for questions.
func (v *Vault) Ranker() *search.Ranker {
	return v.ranker
}

// Synthesizer returns the question answering service.
func (v *Vault) Synthesizer() *answer.Synthesizer {
	return v.synthesizer
}

// Sealer returns the envelope sealer.
func (v *Vault) Sealer() *envelope.Sealer {
	return v.sealer
}

// Ask answers question over owner's notes.
func (v *Vault) Ask(ctx context.Context, owner core.OwnerID, question string, base *search.Filters) (*answer.Answer, error) {
	return v.synthesizer.Ask(ctx, owner, question, base)
}

// NewBackfiller returns a backfiller over this vault's store and key.
func (v *Vault) NewBackfiller(config *backfill.Config, progress io.Writer) (*backfill.Backfiller, error) {
	return backfill.NewBackfiller(v.repo, v.sealer, config, progress, backfill.WithLogger(v.logger))
}
