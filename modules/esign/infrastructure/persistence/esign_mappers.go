package persistence

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signpackage"
	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/domain/entities/doctemplate"
	"github.com/showconnect/esign/modules/esign/domain/entities/jurisdiction"
	"github.com/showconnect/esign/modules/esign/infrastructure/persistence/models"
)

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toDomainRequest(row *models.SignatureRequest) (*signrequest.Request, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	var packageID *uuid.UUID
	if row.PackageID != nil {
		parsed, err := uuid.Parse(*row.PackageID)
		if err != nil {
			return nil, err
		}
		packageID = &parsed
	}
	return &signrequest.Request{
		ID:              id,
		ReferenceCode:   row.ReferenceCode,
		TenantID:        row.TenantID,
		ExternalRef:     strOrEmpty(row.ExternalRef),
		ExternalType:    strOrEmpty(row.ExternalType),
		DocumentName:    row.DocumentName,
		DocumentContent: strOrEmpty(row.DocumentContent),
		DocumentURL:     strOrEmpty(row.DocumentURL),
		TemplateCode:    strOrEmpty(row.TemplateCode),
		TemplateVersion: row.TemplateVersion,
		Jurisdiction:    strOrEmpty(row.Jurisdiction),
		SignerName:      row.SignerName,
		SignerEmail:     strOrEmpty(row.SignerEmail),
		SignerPhone:     strOrEmpty(row.SignerPhone),
		Method:          signrequest.VerificationMethod(row.Method),
		Status:          signrequest.Status(row.Status),
		DeclineReason:   strOrEmpty(row.DeclineReason),
		PackageID:       packageID,
		RolesDisplay:    strOrEmpty(row.RolesDisplay),
		CallbackURL:     strOrEmpty(row.CallbackURL),
		CreatedBy:       strOrEmpty(row.CreatedBy),
		CreatedAt:       row.CreatedAt,
		ExpiresAt:       row.ExpiresAt,
		SignedAt:        row.SignedAt,
	}, nil
}

func toDBRequest(req *signrequest.Request) *models.SignatureRequest {
	var packageID *string
	if req.PackageID != nil {
		s := req.PackageID.String()
		packageID = &s
	}
	return &models.SignatureRequest{
		ID:              req.ID.String(),
		ReferenceCode:   req.ReferenceCode,
		TenantID:        req.TenantID,
		ExternalRef:     nilIfEmpty(req.ExternalRef),
		ExternalType:    nilIfEmpty(req.ExternalType),
		DocumentName:    req.DocumentName,
		DocumentContent: nilIfEmpty(req.DocumentContent),
		DocumentURL:     nilIfEmpty(req.DocumentURL),
		TemplateCode:    nilIfEmpty(req.TemplateCode),
		TemplateVersion: req.TemplateVersion,
		Jurisdiction:    nilIfEmpty(req.Jurisdiction),
		SignerName:      req.SignerName,
		SignerEmail:     nilIfEmpty(req.SignerEmail),
		SignerPhone:     nilIfEmpty(req.SignerPhone),
		Method:          string(req.Method),
		Status:          string(req.Status),
		DeclineReason:   nilIfEmpty(req.DeclineReason),
		PackageID:       packageID,
		RolesDisplay:    nilIfEmpty(req.RolesDisplay),
		CallbackURL:     nilIfEmpty(req.CallbackURL),
		CreatedBy:       nilIfEmpty(req.CreatedBy),
		CreatedAt:       req.CreatedAt,
		ExpiresAt:       req.ExpiresAt,
		SignedAt:        req.SignedAt,
	}
}

func toDomainToken(row *models.SignatureToken) (*signrequest.Token, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	requestID, err := uuid.Parse(row.RequestID)
	if err != nil {
		return nil, err
	}
	return &signrequest.Token{
		ID:               id,
		RequestID:        requestID,
		Value:            row.Token,
		VerificationCode: strOrEmpty(row.VerificationCode),
		CodeExpiresAt:    row.CodeExpiresAt,
		CodeAttempts:     row.CodeAttempts,
		IsVerified:       row.IsVerified,
		VerifiedAt:       row.VerifiedAt,
		CreatedAt:        row.CreatedAt,
	}, nil
}

func toDomainSignature(row *models.Signature) (*signrequest.Signature, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	requestID, err := uuid.Parse(row.RequestID)
	if err != nil {
		return nil, err
	}
	return &signrequest.Signature{
		ID:                     id,
		RequestID:              requestID,
		Kind:                   signrequest.SignatureKind(row.SignatureType),
		TypedName:              strOrEmpty(row.TypedName),
		ImageData:              strOrEmpty(row.SignatureImage),
		SignerIP:               strOrEmpty(row.SignerIP),
		UserAgent:              strOrEmpty(row.UserAgent),
		ConsentText:            strOrEmpty(row.ConsentText),
		VerificationMethodUsed: strOrEmpty(row.VerificationMethodUsed),
		SignedAt:               row.SignedAt,
	}, nil
}

func toDomainPackage(row *models.SigningPackage) (*signpackage.Package, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	var mergeVars map[string]string
	if row.MergeVariables != nil && *row.MergeVariables != "" {
		if err := json.Unmarshal([]byte(*row.MergeVariables), &mergeVars); err != nil {
			return nil, err
		}
	}
	return &signpackage.Package{
		ID:               id,
		Code:             row.PackageCode,
		TenantID:         row.TenantID,
		ExternalRef:      strOrEmpty(row.ExternalRef),
		ExternalType:     strOrEmpty(row.ExternalType),
		TemplateCode:     strOrEmpty(row.TemplateCode),
		TemplateVersion:  row.TemplateVersion,
		DocumentName:     row.DocumentName,
		DocumentContent:  strOrEmpty(row.DocumentContent),
		Jurisdiction:     strOrEmpty(row.Jurisdiction),
		MergeVariables:   mergeVars,
		EventDate:        strOrEmpty(row.EventDate),
		Status:           signpackage.Status(row.Status),
		TotalSigners:     row.TotalSigners,
		CompletedSigners: row.CompletedSigners,
		ExpiresAt:        row.ExpiresAt,
		CallbackURL:      strOrEmpty(row.CallbackURL),
		CreatedBy:        strOrEmpty(row.CreatedBy),
		CreatedAt:        row.CreatedAt,
		CompletedAt:      row.CompletedAt,
	}, nil
}

func toDBPackage(pkg *signpackage.Package) (*models.SigningPackage, error) {
	var mergeVars *string
	if len(pkg.MergeVariables) > 0 {
		raw, err := json.Marshal(pkg.MergeVariables)
		if err != nil {
			return nil, err
		}
		s := string(raw)
		mergeVars = &s
	}
	return &models.SigningPackage{
		ID:               pkg.ID.String(),
		PackageCode:      pkg.Code,
		TenantID:         pkg.TenantID,
		ExternalRef:      nilIfEmpty(pkg.ExternalRef),
		ExternalType:     nilIfEmpty(pkg.ExternalType),
		TemplateCode:     nilIfEmpty(pkg.TemplateCode),
		TemplateVersion:  pkg.TemplateVersion,
		DocumentName:     pkg.DocumentName,
		DocumentContent:  nilIfEmpty(pkg.DocumentContent),
		Jurisdiction:     nilIfEmpty(pkg.Jurisdiction),
		MergeVariables:   mergeVars,
		EventDate:        nilIfEmpty(pkg.EventDate),
		Status:           string(pkg.Status),
		TotalSigners:     pkg.TotalSigners,
		CompletedSigners: pkg.CompletedSigners,
		ExpiresAt:        pkg.ExpiresAt,
		CallbackURL:      nilIfEmpty(pkg.CallbackURL),
		CreatedBy:        nilIfEmpty(pkg.CreatedBy),
		CreatedAt:        pkg.CreatedAt,
		CompletedAt:      pkg.CompletedAt,
	}, nil
}

func toDomainRole(row *models.SigningRole) (*signpackage.Role, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	packageID, err := uuid.Parse(row.PackageID)
	if err != nil {
		return nil, err
	}
	group, err := uuid.Parse(row.ConsolidatedGroup)
	if err != nil {
		return nil, err
	}
	var requestID *uuid.UUID
	if row.RequestID != nil {
		parsed, err := uuid.Parse(*row.RequestID)
		if err != nil {
			return nil, err
		}
		requestID = &parsed
	}
	return &signpackage.Role{
		ID:                id,
		PackageID:         packageID,
		RoleName:          row.RoleName,
		SignerName:        row.SignerName,
		SignerEmail:       strOrEmpty(row.SignerEmail),
		SignerPhone:       strOrEmpty(row.SignerPhone),
		DateOfBirth:       strOrEmpty(row.DateOfBirth),
		IsMinor:           row.IsMinor,
		IsPackageAdmin:    row.IsPackageAdmin,
		RequestID:         requestID,
		ConsolidatedGroup: group,
		Status:            signpackage.RoleStatus(row.Status),
		SignedAt:          row.SignedAt,
	}, nil
}

func toDomainTemplate(row *models.WaiverTemplate) (*doctemplate.Template, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	return &doctemplate.Template{
		ID:           id,
		TenantID:     row.TenantID,
		Code:         row.TemplateCode,
		Name:         row.Name,
		Description:  strOrEmpty(row.Description),
		HTMLContent:  row.HTMLContent,
		Jurisdiction: strOrEmpty(row.Jurisdiction),
		Version:      row.Version,
		IsActive:     row.IsActive,
		CreatedBy:    strOrEmpty(row.CreatedBy),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func toDomainAddendum(row *models.JurisdictionAddendum) (*jurisdiction.Addendum, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	return &jurisdiction.Addendum{
		ID:           id,
		TenantID:     row.TenantID,
		Code:         row.JurisdictionCode,
		Name:         row.JurisdictionName,
		AddendumHTML: row.AddendumHTML,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}
