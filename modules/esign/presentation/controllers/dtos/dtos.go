package dtos

// Signer-facing bodies.

type SendCodeRequest struct {
	Method string `json:"method" validate:"omitempty,oneof=email sms"`
}

type ConfirmCodeRequest struct {
	Code string `json:"code" validate:"required,numeric"`
}

type SubmitSignatureRequest struct {
	SignatureType string `json:"signatureType" validate:"required,oneof=typed drawn"`
	TypedName     string `json:"typedName" validate:"omitempty,max=255"`
	SignatureData string `json:"signatureData" validate:"omitempty"`
	ConsentText   string `json:"consentText" validate:"omitempty,max=2000"`
}

type DeclineRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// Admin API bodies.

type CreateRequestBody struct {
	ExternalRef     string            `json:"externalRef" validate:"omitempty,max=255"`
	ExternalType    string            `json:"externalType" validate:"omitempty,max=64"`
	DocumentName    string            `json:"documentName" validate:"omitempty,max=512"`
	DocumentContent string            `json:"documentContent"`
	DocumentURL     string            `json:"documentUrl" validate:"omitempty,url"`
	TemplateCode    string            `json:"templateCode" validate:"omitempty,max=128"`
	MergeVariables  map[string]string `json:"mergeVariables"`
	Jurisdiction    string            `json:"jurisdiction" validate:"omitempty,max=16"`
	SignerName      string            `json:"signerName" validate:"required,max=255"`
	SignerEmail     string            `json:"signerEmail" validate:"omitempty,email"`
	SignerPhone     string            `json:"signerPhone" validate:"omitempty,max=32"`
	CallbackURL     string            `json:"callbackUrl" validate:"omitempty,url"`
	CreatedBy       string            `json:"createdBy" validate:"omitempty,max=255"`
}

type AssignmentBody struct {
	Role           string `json:"role" validate:"required,max=64"`
	Name           string `json:"name" validate:"required,max=255"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth    string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	IsMinor        *bool  `json:"isMinor"`
	IsPackageAdmin bool   `json:"isPackageAdmin"`
}

type CreatePackageBody struct {
	ExternalRef     string            `json:"externalRef" validate:"omitempty,max=255"`
	ExternalType    string            `json:"externalType" validate:"omitempty,max=64"`
	DocumentName    string            `json:"documentName" validate:"omitempty,max=512"`
	DocumentContent string            `json:"documentContent"`
	TemplateCode    string            `json:"templateCode" validate:"omitempty,max=128"`
	Jurisdiction    string            `json:"jurisdiction" validate:"omitempty,max=16"`
	MergeVariables  map[string]string `json:"mergeVariables"`
	EventDate       string            `json:"eventDate" validate:"omitempty,datetime=2006-01-02"`
	Signers         []AssignmentBody  `json:"signers" validate:"required,min=1,dive"`
	CallbackURL     string            `json:"callbackUrl" validate:"omitempty,url"`
	CreatedBy       string            `json:"createdBy" validate:"omitempty,max=255"`
}

type BatchPackagesBody struct {
	Codes []string `json:"codes" validate:"required,min=1,max=50,dive,required"`
}

type ReplaceSignerBody struct {
	Name        string `json:"name" validate:"required,max=255"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

type TemplateBody struct {
	Code         string `json:"code" validate:"required,max=128"`
	Name         string `json:"name" validate:"required,max=255"`
	Description  string `json:"description" validate:"omitempty,max=2000"`
	HTMLContent  string `json:"htmlContent" validate:"required"`
	Jurisdiction string `json:"jurisdiction" validate:"omitempty,max=16"`
	CreatedBy    string `json:"createdBy" validate:"omitempty,max=255"`
}

type UpdateTemplateBody struct {
	Name         string `json:"name" validate:"required,max=255"`
	Description  string `json:"description" validate:"omitempty,max=2000"`
	HTMLContent  string `json:"htmlContent" validate:"required"`
	Jurisdiction string `json:"jurisdiction" validate:"omitempty,max=16"`
	IsActive     *bool  `json:"isActive"`
}

type JurisdictionBody struct {
	Code         string `json:"code" validate:"required,max=16"`
	Name         string `json:"name" validate:"required,max=255"`
	AddendumHTML string `json:"addendumHtml" validate:"required"`
	IsActive     *bool  `json:"isActive"`
}
