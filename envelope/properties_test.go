package envelope

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func drawSealer(t *rapid.T) *Sealer {
	master := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "master")
	s, err := NewSealer(master)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return s
}

func TestProperty_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSealer(t)
		owner := rapid.StringMatching(`[a-f0-9]{1,24}`).Draw(t, "owner")
		plaintext := rapid.String().Draw(t, "plaintext")

		sealed, err := s.Encrypt(plaintext, owner)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if plaintext != "" && !IsCiphertext(sealed) {
			t.Fatalf("sealed value %q lacks prefix", sealed)
		}

		got, err := s.Decrypt(sealed, owner)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plaintext {
			t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
		}
	})
}

func TestProperty_OwnerBinding(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSealer(t)
		owner := rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "owner")
		other := rapid.StringMatching(`[a-z]{1,12}`).Filter(func(v string) bool { return v != owner }).Draw(t, "other")
		plaintext := rapid.StringN(1, 64, -1).Draw(t, "plaintext")

		sealed, err := s.Encrypt(plaintext, owner)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if _, err := s.Decrypt(sealed, other); err == nil {
			t.Fatalf("decrypting with owner %q succeeded for value sealed to %q", other, owner)
		}
	})
}

func TestProperty_LegacyPassthrough(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSealer(t)
		value := rapid.String().Filter(func(v string) bool { return !IsCiphertext(v) }).Draw(t, "value")

		got, err := s.Decrypt(value, "anyone")
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != value {
			t.Fatalf("legacy value changed: got %q want %q", got, value)
		}
	})
}

func TestProperty_AnyFlippedBitFails(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSealer(t)
		owner := rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "owner")
		plaintext := rapid.StringN(1, 64, -1).Draw(t, "plaintext")

		sealed, err := s.Encrypt(plaintext, owner)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, Prefix))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}

		i := rapid.IntRange(0, len(payload)-1).Draw(t, "index")
		bit := rapid.IntRange(0, 7).Draw(t, "bit")
		payload[i] ^= 1 << bit

		if _, err := s.Decrypt(Prefix+base64.StdEncoding.EncodeToString(payload), owner); !errors.Is(err, ErrDecryption) {
			t.Fatalf("flipping bit %d of byte %d: got %v, want ErrDecryption", bit, i, err)
		}
	})
}
