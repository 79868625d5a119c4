package signpackage

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusComplete  Status = "complete"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Package aggregates several role assignments into one multi-party signing
// transaction. TotalSigners counts distinct consolidated identities, not
// roles; CompletedSigners counts identities with at least one signed role.
type Package struct {
	ID               uuid.UUID
	Code             string
	TenantID         string
	ExternalRef      string
	ExternalType     string
	TemplateCode     string
	TemplateVersion  *int
	DocumentName     string
	DocumentContent  string
	Jurisdiction     string
	MergeVariables   map[string]string
	EventDate        string
	Status           Status
	TotalSigners     int
	CompletedSigners int
	ExpiresAt        time.Time
	CallbackURL      string
	CreatedBy        string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

type RoleStatus string

const (
	RoleStatusSent     RoleStatus = "sent"
	RoleStatusSigned   RoleStatus = "signed"
	RoleStatusDeclined RoleStatus = "declined"
)

// Role is one row per (package, role-name) assignment. Several roles may
// point at the same request when their signers consolidated into one
// identity; ConsolidatedGroup ties those siblings together.
type Role struct {
	ID                uuid.UUID
	PackageID         uuid.UUID
	RoleName          string
	SignerName        string
	SignerEmail       string
	SignerPhone       string
	DateOfBirth       string
	IsMinor           bool
	IsPackageAdmin    bool
	RequestID         *uuid.UUID
	ConsolidatedGroup uuid.UUID
	Status            RoleStatus
	SignedAt          *time.Time
}

// Assignment is one entry of the ordered signer list a package is created
// from. DateOfBirth and EventDate travel as ISO dates (YYYY-MM-DD).
type Assignment struct {
	Role           string
	Name           string
	Email          string
	Phone          string
	DateOfBirth    string
	IsMinor        *bool
	IsPackageAdmin bool
}
