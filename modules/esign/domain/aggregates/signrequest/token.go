package signrequest

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Token is the signer's sole credential: an opaque random value carried in
// the sign URL. Exactly one exists per request. IsVerified is monotonic; it
// is never reset, even when a new code is issued.
type Token struct {
	ID               uuid.UUID
	RequestID        uuid.UUID
	Value            string
	VerificationCode string
	CodeExpiresAt    *time.Time
	CodeAttempts     int
	IsVerified       bool
	VerifiedAt       *time.Time
	CreatedAt        time.Time
}

// NewTokenValue returns 32 random bytes hex-encoded.
func NewTokenValue() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
