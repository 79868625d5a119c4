package services

import (
	"context"
	"strings"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signpackage"
	"github.com/showconnect/esign/modules/esign/domain/entities/doctemplate"
	"github.com/showconnect/esign/modules/esign/domain/entities/jurisdiction"
	"github.com/showconnect/esign/pkg/serrors"
)

// contentResolver produces the base document body shared by standalone
// requests and packages: inline content or a named template, package-level
// variables substituted, jurisdiction addendum injected at its placeholder or
// appended when the body never references it.
type contentResolver struct {
	templates     doctemplate.Repository
	jurisdictions jurisdiction.Repository
}

type resolvedContent struct {
	Body            string
	DocumentName    string
	TemplateVersion *int
}

func (r *contentResolver) resolveBase(
	ctx context.Context,
	inline, templateCode, jurisdictionCode string,
	mergeVars map[string]string,
) (*resolvedContent, error) {
	out := &resolvedContent{Body: inline}

	if out.Body == "" && templateCode != "" {
		tpl, err := r.templates.GetByCode(ctx, templateCode)
		if err != nil {
			return nil, err
		}
		out.Body = tpl.HTMLContent
		out.DocumentName = tpl.Name
		version := tpl.Version
		out.TemplateVersion = &version
	}
	if out.Body == "" {
		return nil, serrors.NewValidationError("document content or template code is required")
	}

	if len(mergeVars) > 0 {
		out.Body = signpackage.ResolveVariables(out.Body, mergeVars)
	}

	if jurisdictionCode != "" {
		addendum, err := r.jurisdictions.GetByCode(ctx, jurisdictionCode)
		if err == nil {
			out.Body = injectAddendum(out.Body, addendum.AddendumHTML)
		} else if _, ok := err.(*serrors.NotFoundError); !ok {
			return nil, err
		}
	} else {
		// No jurisdiction: an unresolved addendum placeholder renders empty.
		out.Body = injectAddendum(out.Body, "")
	}

	return out, nil
}

func injectAddendum(body, addendumHTML string) string {
	if signpackage.HasVariable(body, signpackage.JurisdictionVariable) {
		return signpackage.ResolveVariables(body, map[string]string{
			signpackage.JurisdictionVariable: addendumHTML,
		})
	}
	if addendumHTML == "" {
		return body
	}
	return body + "\n" + addendumHTML
}

func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return reason[:500]
	}
	return reason
}
