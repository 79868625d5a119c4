package signpackage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FindParams struct {
	Status      Status
	ExternalRef string
	Limit       int
	Offset      int
}

type Repository interface {
	Create(ctx context.Context, pkg *Package) error
	GetByID(ctx context.Context, id uuid.UUID) (*Package, error)
	GetByCode(ctx context.Context, code string) (*Package, error)
	List(ctx context.Context, params *FindParams) ([]*Package, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, completedSigners int, status Status, completedAt *time.Time) error

	CreateRole(ctx context.Context, role *Role) error
	Roles(ctx context.Context, packageID uuid.UUID) ([]*Role, error)
	RoleByID(ctx context.Context, id uuid.UUID) (*Role, error)
	RoleByRequestID(ctx context.Context, requestID uuid.UUID) (*Role, error)
	RolesByGroup(ctx context.Context, group uuid.UUID) ([]*Role, error)
	// MarkRolesSigned flips every role pointing at the request to signed.
	MarkRolesSigned(ctx context.Context, requestID uuid.UUID, at time.Time) error
	UpdateRolesStatusByRequestID(ctx context.Context, requestID uuid.UUID, status RoleStatus) error
	// ReassignRole swaps the signer identity on a role and repoints it at a
	// new request, resetting its status to sent.
	ReassignRole(ctx context.Context, roleID uuid.UUID, name, email, phone, dateOfBirth string, requestID uuid.UUID) error
	// CountSignedGroups counts distinct consolidated groups with at least
	// one signed role, never raw signed rows.
	CountSignedGroups(ctx context.Context, packageID uuid.UUID) (int, error)
}
