package signrequest

import (
	"time"

	"github.com/google/uuid"
)

type SignatureKind string

const (
	KindTyped SignatureKind = "typed"
	KindDrawn SignatureKind = "drawn"
)

// Signature is the consent record created exactly once when a request
// reaches signed. At most one exists per request.
type Signature struct {
	ID                     uuid.UUID
	RequestID              uuid.UUID
	Kind                   SignatureKind
	TypedName              string
	ImageData              string
	SignerIP               string
	UserAgent              string
	ConsentText            string
	VerificationMethodUsed string
	SignedAt               time.Time
}
