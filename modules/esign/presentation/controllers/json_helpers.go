package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/serrors"
)

var validate = validator.New()

type apiError struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	Violations []string `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: message, Code: code})
}

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// writeServiceError maps the service error taxonomy onto transport statuses:
// validation 400, unknown 404, gone 410, terminal-state conflict 409, every
// rate-limit scope 429.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *serrors.ValidationError:
		writeJSON(w, http.StatusBadRequest, apiError{
			Error:      e.Message,
			Code:       e.Code,
			Violations: e.Violations,
		})
	case *serrors.StateConflictError:
		writeError(w, http.StatusConflict, e.Code, e.Error())
	case *serrors.RateLimitError:
		writeError(w, http.StatusTooManyRequests, e.Code, e.Error())
	case *serrors.NotFoundError:
		writeError(w, http.StatusNotFound, e.Code, e.Error())
	case *serrors.NotifierError:
		writeError(w, http.StatusBadGateway, e.Code, e.Error())
	case *serrors.Base:
		switch e.Code {
		case "GONE":
			writeError(w, http.StatusGone, e.Code, e.Message)
		case "VERIFICATION_REQUIRED":
			writeError(w, http.StatusForbidden, e.Code, e.Message)
		default:
			writeError(w, http.StatusInternalServerError, e.Code, e.Message)
		}
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("unhandled service error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
