package models

import "time"

type SignatureRequest struct {
	ID              string
	ReferenceCode   string
	TenantID        string
	ExternalRef     *string
	ExternalType    *string
	DocumentName    string
	DocumentContent *string
	DocumentURL     *string
	TemplateCode    *string
	TemplateVersion *int
	Jurisdiction    *string
	SignerName      string
	SignerEmail     *string
	SignerPhone     *string
	Method          string
	Status          string
	DeclineReason   *string
	PackageID       *string
	RolesDisplay    *string
	CallbackURL     *string
	CreatedBy       *string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	SignedAt        *time.Time
}

type SignatureToken struct {
	ID               string
	RequestID        string
	Token            string
	VerificationCode *string
	CodeExpiresAt    *time.Time
	CodeAttempts     int
	IsVerified       bool
	VerifiedAt       *time.Time
	CreatedAt        time.Time
}

type Signature struct {
	ID                     string
	RequestID              string
	SignatureType          string
	TypedName              *string
	SignatureImage         *string
	SignerIP               *string
	UserAgent              *string
	ConsentText            *string
	VerificationMethodUsed *string
	SignedAt               time.Time
}

type SigningPackage struct {
	ID               string
	PackageCode      string
	TenantID         string
	ExternalRef      *string
	ExternalType     *string
	TemplateCode     *string
	TemplateVersion  *int
	DocumentName     string
	DocumentContent  *string
	Jurisdiction     *string
	MergeVariables   *string
	EventDate        *string
	Status           string
	TotalSigners     int
	CompletedSigners int
	ExpiresAt        time.Time
	CallbackURL      *string
	CreatedBy        *string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

type SigningRole struct {
	ID                string
	PackageID         string
	RoleName          string
	SignerName        string
	SignerEmail       *string
	SignerPhone       *string
	DateOfBirth       *string
	IsMinor           bool
	IsPackageAdmin    bool
	RequestID         *string
	ConsolidatedGroup string
	Status            string
	SignedAt          *time.Time
}

type WaiverTemplate struct {
	ID           string
	TenantID     string
	TemplateCode string
	Name         string
	Description  *string
	HTMLContent  string
	Jurisdiction *string
	Version      int
	IsActive     bool
	CreatedBy    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type JurisdictionAddendum struct {
	ID               string
	TenantID         string
	JurisdictionCode string
	JurisdictionName string
	AddendumHTML     string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
