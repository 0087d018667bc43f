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


// Package envelope seals note bodies with per-owner keys.
//
// Each owner gets a 256-bit key derived from a single master secret with
// HKDF-SHA256 (info "memories:<owner>", empty salt). Bodies are sealed with
// AES-256-GCM under a fresh 96-bit IV and serialized as
//
//	gcm1:<base64(iv || tag || ciphertext)>
//
// Values without the prefix are legacy plaintext and pass through Decrypt
// unchanged, which lets encrypted and unencrypted rows coexist until the
// backfill has run.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"golang.org/x/crypto/hkdf"
)

const (
	// Prefix marks a value as a sealed envelope.
	Prefix = "gcm1:"

	// KeySize is the length of both the master secret and derived keys.
	KeySize = 32

	ivSize     = 12
	tagSize    = 16
	infoPrefix = "memories:"
)

// Sealer encrypts and decrypts note bodies. The master secret is copied at
// construction and never mutated, so a Sealer is safe for concurrent use.
type Sealer struct {
	master []byte
	random io.Reader
}

// Option configures a Sealer.
type Option func(*Sealer) error

// WithRandom replaces the IV source. Only tests should need this.
func WithRandom(r io.Reader) Option {
	return func(s *Sealer) error {
		if r == nil {
			return fmt.Errorf("%w: nil random source", ErrConfiguration)
		}
		s.random = r
		return nil
	}
}

// NewSealer creates a Sealer from a 32-byte master secret.
func NewSealer(masterKey []byte, opts ...Option) (*Sealer, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrConfiguration, KeySize, len(masterKey))
	}
	s := &Sealer{
		master: append([]byte(nil), masterKey...),
		random: rand.Reader,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ParseMasterKey decodes a base64 master secret as found in configuration.
func ParseMasterKey(b64 string) ([]byte, error) {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, fmt.Errorf("%w: master key is missing", ErrConfiguration)
	}
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: master key is not valid base64: %w", ErrConfiguration, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrConfiguration, KeySize, len(key))
	}
	return key, nil
}

// GenerateMasterKey returns a fresh random master secret encoded as base64.
func GenerateMasterKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DeriveKey computes the owner's data key. Keys are never cached.
func (s *Sealer) DeriveKey(owner string) ([KeySize]byte, error) {
	var key [KeySize]byte
	r := hkdf.New(sha256.New, s.master, nil, []byte(infoPrefix+owner))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// IsCiphertext reports whether value carries the envelope prefix.
func IsCiphertext(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Encrypt seals plaintext for owner. Empty input is returned unchanged.
func (s *Sealer) Encrypt(plaintext, owner string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}
	aead, err := s.aead(owner)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(s.random, iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	// Seal appends ct||tag; the envelope stores iv||tag||ct.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ctLen := len(sealed) - tagSize

	payload := make([]byte, 0, ivSize+len(sealed))
	payload = append(payload, iv...)
	payload = append(payload, sealed[ctLen:]...)
	payload = append(payload, sealed[:ctLen]...)

	return Prefix + base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt opens a sealed value for owner. Values without the prefix,
// including the empty string, are returned unchanged. Any failure to open a
// prefixed value is a *DecryptionError; partial plaintext is never returned.
func (s *Sealer) Decrypt(value, owner string) (string, error) {
	if !IsCiphertext(value) {
		return value, nil
	}

	payload, err := base64.StdEncoding.DecodeString(value[len(Prefix):])
	if err != nil {
		return "", decryptionError("malformed base64", err)
	}
	if len(payload) < ivSize+tagSize {
		return "", decryptionError("payload too short", nil)
	}

	aead, err := s.aead(owner)
	if err != nil {
		return "", err
	}

	iv := payload[:ivSize]
	tag := payload[ivSize : ivSize+tagSize]
	ct := payload[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", decryptionError("authentication failed", err)
	}
	return string(plaintext), nil
}

// Fingerprint returns a short digest of the master secret that identifies
// which key is loaded without revealing it.
func (s *Sealer) Fingerprint() string {
	h, _ := blake2b.New(8, nil)
	h.Write(s.master)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Sealer) aead(owner string) (cipher.AEAD, error) {
	key, err := s.DeriveKey(owner)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
