// Package validate provides shape validation for the untrusted inputs the
// server accepts over its websocket surface: participant addresses, protocol
// signatures, and client message payloads. It checks byte shape only; it never
// verifies a signature cryptographically (that is the clearnet package's job).
package validate

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// AddressHexLen is the length of a 0x-prefixed 20-byte hex address.
	AddressHexLen = 42

	// SignatureHexLen is the length of a 0x-prefixed 65-byte hex signature
	// (r || s || v).
	SignatureHexLen = 132
)

var (
	ErrSignatureMalformed = errors.New("signature malformed")
	ErrAddressMalformed   = errors.New("address malformed")
	ErrInvalidPayload     = errors.New("invalid payload")
)

// Address checks that s looks like a 0x-prefixed 20-byte hex address and
// returns its canonical (lowercase) form.
func Address(s string) (string, error) {
	if len(s) != AddressHexLen || !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("%w: %q", ErrAddressMalformed, s)
	}
	if !isHex(s[2:]) {
		return "", fmt.Errorf("%w: non-hex characters in %q", ErrAddressMalformed, s)
	}
	return strings.ToLower(s), nil
}

// Signature checks that s is a 0x-prefixed 65-byte hex signature. The byte
// shape is all that is checked here; recovery happens elsewhere.
func Signature(s string) error {
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("%w: missing 0x prefix", ErrSignatureMalformed)
	}
	if len(s) != SignatureHexLen {
		return fmt.Errorf("%w: want %d hex chars, got %d", ErrSignatureMalformed, SignatureHexLen-2, len(s)-2)
	}
	if !isHex(s[2:]) {
		return fmt.Errorf("%w: non-hex characters", ErrSignatureMalformed)
	}
	return nil
}

// NonEmpty reports ErrInvalidPayload when any named field is blank. Callers
// pass field name/value pairs.
func NonEmpty(fields map[string]string) error {
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidPayload, name)
		}
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
