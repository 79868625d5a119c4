package signrequest

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusVerified  Status = "verified"
	StatusSigned    Status = "signed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusDeclined  Status = "declined"
)

type VerificationMethod string

const (
	MethodEmail VerificationMethod = "email"
	MethodSMS   VerificationMethod = "sms"
	MethodBoth  VerificationMethod = "both"
)

// transitions is the single source of truth for the status DAG. Any change
// not listed here is rejected, terminal rows included: terminal statuses have
// no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:  {StatusSent, StatusViewed, StatusExpired, StatusCancelled, StatusDeclined},
	StatusSent:     {StatusViewed, StatusExpired, StatusCancelled, StatusDeclined},
	StatusViewed:   {StatusVerified, StatusExpired, StatusCancelled, StatusDeclined},
	StatusVerified: {StatusSigned, StatusExpired, StatusCancelled, StatusDeclined},
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusSigned, StatusExpired, StatusCancelled, StatusDeclined:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Request struct {
	ID              uuid.UUID
	ReferenceCode   string
	TenantID        string
	ExternalRef     string
	ExternalType    string
	DocumentName    string
	DocumentContent string
	DocumentURL     string
	TemplateCode    string
	TemplateVersion *int
	Jurisdiction    string
	SignerName      string
	SignerEmail     string
	SignerPhone     string
	Method          VerificationMethod
	Status          Status
	DeclineReason   string
	PackageID       *uuid.UUID
	RolesDisplay    string
	CallbackURL     string
	CreatedBy       string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	SignedAt        *time.Time
}

func (r *Request) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// DetectMethod derives the verification method from available contact info.
// An address counts as email when it contains '@'; a phone needs at least
// ten digits worth of characters.
func DetectMethod(email, phone string) VerificationMethod {
	hasEmail := strings.Contains(email, "@")
	hasPhone := len(phone) >= 10

	switch {
	case hasEmail && hasPhone:
		return MethodBoth
	case hasPhone:
		return MethodSMS
	default:
		return MethodEmail
	}
}

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReferenceCode returns a human-readable code like SIG-7KQ2M9XA. The
// alphabet omits lookalike characters since these codes get read over the
// phone.
func NewReferenceCode(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('-')
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			panic(err)
		}
		b.WriteByte(referenceAlphabet[n.Int64()])
	}
	return b.String()
}
