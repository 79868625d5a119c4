package signpackage

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// JurisdictionVariable is the placeholder a legal addendum is injected at.
// When a document never references it, the addendum block is appended to the
// end of the resolved body instead.
const JurisdictionVariable = "jurisdictionAddendum"

// placeholderCache is hit from concurrent request goroutines.
var placeholderCache sync.Map

func placeholderFor(key string) *regexp.Regexp {
	if re, ok := placeholderCache.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(key) + `\s*\}\}`)
	actual, _ := placeholderCache.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}

// ResolveVariables substitutes {{ key }} placeholders in body. Unknown
// placeholders are left untouched so the second resolution pass can fill
// them in.
func ResolveVariables(body string, vars map[string]string) string {
	for key, value := range vars {
		body = placeholderFor(key).ReplaceAllString(body, value)
	}
	return body
}

// HasVariable reports whether body references {{ key }}.
func HasVariable(body, key string) bool {
	return placeholderFor(key).MatchString(body)
}

// SignerVariables builds the identity variables of the second resolution
// pass. These never leak between consolidated groups: callers resolve them
// against a fresh copy of the base document per group.
func SignerVariables(a Assignment, roleNames []string, eventDate string) map[string]string {
	vars := map[string]string{
		"signerName":      a.Name,
		"signerEmail":     a.Email,
		"signerPhone":     a.Phone,
		"signerRoles":     joinTitled(roleNames),
		"signerRolesList": strings.Join(roleNames, ", "),
	}

	if a.DateOfBirth != "" && eventDate != "" {
		dob, dobErr := time.Parse(dateLayout, a.DateOfBirth)
		at, atErr := time.Parse(dateLayout, eventDate)
		if dobErr == nil && atErr == nil {
			age := AgeAt(dob, at)
			vars["signerAge"] = fmt.Sprintf("%d", age)
			if age < 18 {
				vars["signerIsMinor"] = "Yes"
			} else {
				vars["signerIsMinor"] = "No"
			}
		}
	}
	return vars
}

func joinTitled(roleNames []string) string {
	titled := make([]string, 0, len(roleNames))
	for _, name := range roleNames {
		if name == "" {
			continue
		}
		titled = append(titled, strings.ToUpper(name[:1])+name[1:])
	}
	return strings.Join(titled, ", ")
}
