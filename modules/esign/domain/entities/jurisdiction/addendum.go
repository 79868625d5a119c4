package jurisdiction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Addendum is a per-jurisdiction legal notice injected into document bodies
// at the jurisdiction placeholder, or appended when the body has none.
type Addendum struct {
	ID           uuid.UUID
	TenantID     string
	Code         string
	Name         string
	AddendumHTML string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Addendum, error)
	Upsert(ctx context.Context, addendum *Addendum) (*Addendum, error)
	List(ctx context.Context) ([]*Addendum, error)
}
