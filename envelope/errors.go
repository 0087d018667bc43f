package envelope

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates a missing or malformed master secret.
	ErrConfiguration = errors.New("envelope configuration error")

	// ErrDecryption indicates a ciphertext envelope that could not be opened.
	ErrDecryption = errors.New("decryption failed")
)

// DecryptionError describes why an envelope could not be opened. It matches
// ErrDecryption under errors.Is. The owner is not recorded.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrDecryption, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrDecryption, e.Reason)
}

func (e *DecryptionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecryption}
	}
	return []error{ErrDecryption, e.Err}
}

func decryptionError(reason string, err error) error {
	return &DecryptionError{Reason: reason, Err: err}
}
