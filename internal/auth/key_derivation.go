package auth

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// DerivedKeyLength is the length of derived keys in bytes (256 bits for HMAC-SHA256).
	DerivedKeyLength = 32

	purposeSessionJWT = "vitalpages-session-jwt-v1"
	purposePendingJWT = "vitalpages-2fa-pending-jwt-v1"
)

var ErrInvalidMasterSecret = errors.New("master secret cannot be empty")

// DeriveKey derives a cryptographic key from a master secret using HKDF-SHA256
// (RFC 5869). Keys derived with different purpose strings are independent, so
// a leaked pending-token key never compromises session tokens.
func DeriveKey(masterSecret []byte, purpose string) ([]byte, error) {
	if len(masterSecret) == 0 {
		return nil, ErrInvalidMasterSecret
	}

	reader := hkdf.New(sha256.New, masterSecret, nil, []byte(purpose))

	derivedKey := make([]byte, DerivedKeyLength)
	if _, err := io.ReadFull(reader, derivedKey); err != nil {
		return nil, err
	}

	return derivedKey, nil
}

// DeriveSessionKey derives the signing key for full session tokens.
func DeriveSessionKey(masterSecret []byte) ([]byte, error) {
	return DeriveKey(masterSecret, purposeSessionJWT)
}

// DerivePendingKey derives the signing key for pending two-factor tokens.
func DerivePendingKey(masterSecret []byte) ([]byte, error) {
	return DeriveKey(masterSecret, purposePendingJWT)
}
