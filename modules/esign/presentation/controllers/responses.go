package controllers

import (
	"time"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signpackage"
	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/domain/entities/doctemplate"
	"github.com/showconnect/esign/modules/esign/domain/entities/jurisdiction"
	"github.com/showconnect/esign/modules/esign/infrastructure/notify"
)

type requestResponse struct {
	ID              string  `json:"id"`
	ReferenceCode   string  `json:"referenceCode"`
	ExternalRef     string  `json:"externalRef,omitempty"`
	ExternalType    string  `json:"externalType,omitempty"`
	DocumentName    string  `json:"documentName"`
	TemplateCode    string  `json:"templateCode,omitempty"`
	TemplateVersion *int    `json:"templateVersion,omitempty"`
	Jurisdiction    string  `json:"jurisdiction,omitempty"`
	SignerName      string  `json:"signerName"`
	SignerEmail     string  `json:"signerEmail,omitempty"`
	SignerPhone     string  `json:"signerPhone,omitempty"`
	Method          string  `json:"method"`
	Status          string  `json:"status"`
	DeclineReason   string  `json:"declineReason,omitempty"`
	PackageID       string  `json:"packageId,omitempty"`
	RolesDisplay    string  `json:"roles,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	ExpiresAt       string  `json:"expiresAt"`
	SignedAt        *string `json:"signedAt,omitempty"`
}

func toRequestResponse(req *signrequest.Request) requestResponse {
	out := requestResponse{
		ID:              req.ID.String(),
		ReferenceCode:   req.ReferenceCode,
		ExternalRef:     req.ExternalRef,
		ExternalType:    req.ExternalType,
		DocumentName:    req.DocumentName,
		TemplateCode:    req.TemplateCode,
		TemplateVersion: req.TemplateVersion,
		Jurisdiction:    req.Jurisdiction,
		SignerName:      req.SignerName,
		SignerEmail:     req.SignerEmail,
		SignerPhone:     req.SignerPhone,
		Method:          string(req.Method),
		Status:          string(req.Status),
		DeclineReason:   req.DeclineReason,
		RolesDisplay:    req.RolesDisplay,
		CreatedAt:       req.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:       req.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if req.PackageID != nil {
		out.PackageID = req.PackageID.String()
	}
	if req.SignedAt != nil {
		at := req.SignedAt.UTC().Format(time.RFC3339)
		out.SignedAt = &at
	}
	return out
}

// signingView is the signer-facing shape: document body included, contact
// details masked since the bearer of a forwarded link is not necessarily the
// signer.
type signingView struct {
	ReferenceCode   string `json:"referenceCode"`
	DocumentName    string `json:"documentName"`
	DocumentContent string `json:"documentContent,omitempty"`
	DocumentURL     string `json:"documentUrl,omitempty"`
	SignerName      string `json:"signerName"`
	MaskedEmail     string `json:"maskedEmail,omitempty"`
	MaskedPhone     string `json:"maskedPhone,omitempty"`
	Method          string `json:"method"`
	Status          string `json:"status"`
	RolesDisplay    string `json:"roles,omitempty"`
	IsVerified      bool   `json:"isVerified"`
	ExpiresAt       string `json:"expiresAt"`
}

func toSigningView(req *signrequest.Request, tok *signrequest.Token) signingView {
	view := signingView{
		ReferenceCode:   req.ReferenceCode,
		DocumentName:    req.DocumentName,
		DocumentContent: req.DocumentContent,
		DocumentURL:     req.DocumentURL,
		SignerName:      req.SignerName,
		Method:          string(req.Method),
		Status:          string(req.Status),
		RolesDisplay:    req.RolesDisplay,
		IsVerified:      tok.IsVerified,
		ExpiresAt:       req.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if req.SignerEmail != "" {
		view.MaskedEmail = notify.MaskEmail(req.SignerEmail)
	}
	if req.SignerPhone != "" {
		view.MaskedPhone = notify.MaskPhone(req.SignerPhone)
	}
	return view
}

type roleResponse struct {
	ID                string  `json:"id"`
	RoleName          string  `json:"roleName"`
	SignerName        string  `json:"signerName"`
	SignerEmail       string  `json:"signerEmail,omitempty"`
	SignerPhone       string  `json:"signerPhone,omitempty"`
	DateOfBirth       string  `json:"dateOfBirth,omitempty"`
	IsMinor           bool    `json:"isMinor"`
	IsPackageAdmin    bool    `json:"isPackageAdmin"`
	RequestID         string  `json:"requestId,omitempty"`
	ConsolidatedGroup string  `json:"consolidatedGroup"`
	Status            string  `json:"status"`
	SignedAt          *string `json:"signedAt,omitempty"`
}

type packageResponse struct {
	ID               string         `json:"id"`
	Code             string         `json:"packageCode"`
	ExternalRef      string         `json:"externalRef,omitempty"`
	ExternalType     string         `json:"externalType,omitempty"`
	DocumentName     string         `json:"documentName"`
	Jurisdiction     string         `json:"jurisdiction,omitempty"`
	EventDate        string         `json:"eventDate,omitempty"`
	Status           string         `json:"status"`
	TotalSigners     int            `json:"totalSigners"`
	CompletedSigners int            `json:"completedSigners"`
	ExpiresAt        string         `json:"expiresAt"`
	CreatedAt        string         `json:"createdAt"`
	CompletedAt      *string        `json:"completedAt,omitempty"`
	Roles            []roleResponse `json:"roles,omitempty"`
}

func toPackageResponse(pkg *signpackage.Package, roles []*signpackage.Role) packageResponse {
	out := packageResponse{
		ID:               pkg.ID.String(),
		Code:             pkg.Code,
		ExternalRef:      pkg.ExternalRef,
		ExternalType:     pkg.ExternalType,
		DocumentName:     pkg.DocumentName,
		Jurisdiction:     pkg.Jurisdiction,
		EventDate:        pkg.EventDate,
		Status:           string(pkg.Status),
		TotalSigners:     pkg.TotalSigners,
		CompletedSigners: pkg.CompletedSigners,
		ExpiresAt:        pkg.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:        pkg.CreatedAt.UTC().Format(time.RFC3339),
	}
	if pkg.CompletedAt != nil {
		at := pkg.CompletedAt.UTC().Format(time.RFC3339)
		out.CompletedAt = &at
	}
	for _, role := range roles {
		rr := roleResponse{
			ID:                role.ID.String(),
			RoleName:          role.RoleName,
			SignerName:        role.SignerName,
			SignerEmail:       role.SignerEmail,
			SignerPhone:       role.SignerPhone,
			DateOfBirth:       role.DateOfBirth,
			IsMinor:           role.IsMinor,
			IsPackageAdmin:    role.IsPackageAdmin,
			ConsolidatedGroup: role.ConsolidatedGroup.String(),
			Status:            string(role.Status),
		}
		if role.RequestID != nil {
			rr.RequestID = role.RequestID.String()
		}
		if role.SignedAt != nil {
			at := role.SignedAt.UTC().Format(time.RFC3339)
			rr.SignedAt = &at
		}
		out.Roles = append(out.Roles, rr)
	}
	return out
}

type templateResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	HTMLContent  string `json:"htmlContent"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Version      int    `json:"version"`
	IsActive     bool   `json:"isActive"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func toTemplateResponse(tpl *doctemplate.Template) templateResponse {
	return templateResponse{
		ID:           tpl.ID.String(),
		Code:         tpl.Code,
		Name:         tpl.Name,
		Description:  tpl.Description,
		HTMLContent:  tpl.HTMLContent,
		Jurisdiction: tpl.Jurisdiction,
		Version:      tpl.Version,
		IsActive:     tpl.IsActive,
		CreatedAt:    tpl.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    tpl.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type jurisdictionResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	AddendumHTML string `json:"addendumHtml"`
	IsActive     bool   `json:"isActive"`
}

func toJurisdictionResponse(a *jurisdiction.Addendum) jurisdictionResponse {
	return jurisdictionResponse{
		ID:           a.ID.String(),
		Code:         a.Code,
		Name:         a.Name,
		AddendumHTML: a.AddendumHTML,
		IsActive:     a.IsActive,
	}
}
