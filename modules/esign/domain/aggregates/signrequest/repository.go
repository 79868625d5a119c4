package signrequest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FindParams struct {
	Status       Status
	ExternalRef  string
	ExternalType string
	SignerEmail  string
	CreatedBy    string
	Jurisdiction string
	Limit        int
	Offset       int
}

type Repository interface {
	Create(ctx context.Context, req *Request, token *Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	GetByReferenceCode(ctx context.Context, code string) (*Request, error)
	// GetByToken resolves a capability token to its request. An unknown
	// token and an expired one are reported identically by callers.
	GetByToken(ctx context.Context, token string) (*Request, *Token, error)
	GetTokenByRequestID(ctx context.Context, requestID uuid.UUID) (*Token, error)
	List(ctx context.Context, params *FindParams) ([]*Request, error)
	ListExpired(ctx context.Context, now time.Time) ([]*Request, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateDeclined(ctx context.Context, id uuid.UUID, reason string) error
	AttachPackage(ctx context.Context, id uuid.UUID, packageID uuid.UUID, rolesDisplay string) error

	SetVerificationCode(ctx context.Context, tokenID uuid.UUID, code string, expiresAt time.Time) error
	IncrementCodeAttempts(ctx context.Context, tokenID uuid.UUID) error
	MarkVerified(ctx context.Context, tokenID uuid.UUID) error

	CreateSignature(ctx context.Context, sig *Signature) error
	GetSignatureByRequestID(ctx context.Context, requestID uuid.UUID) (*Signature, error)
}
