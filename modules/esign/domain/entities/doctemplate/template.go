package doctemplate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Template is a named, versioned waiver body. Updating the content bumps the
// version; requests snapshot the version they were resolved against.
type Template struct {
	ID           uuid.UUID
	TenantID     string
	Code         string
	Name         string
	Description  string
	HTMLContent  string
	Jurisdiction string
	Version      int
	IsActive     bool
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	Create(ctx context.Context, tpl *Template) error
	GetByCode(ctx context.Context, code string) (*Template, error)
	Update(ctx context.Context, tpl *Template) error
	List(ctx context.Context, jurisdiction string) ([]*Template, error)
	Deactivate(ctx context.Context, code string) error
}
