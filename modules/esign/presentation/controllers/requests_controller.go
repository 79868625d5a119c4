package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/presentation/controllers/dtos"
	"github.com/showconnect/esign/modules/esign/services"
)

// RequestsController is the admin surface for single signature requests.
// Registered behind API-key auth.
type RequestsController struct {
	lifecycle *services.LifecycleService
}

func NewRequestsController(lifecycle *services.LifecycleService) *RequestsController {
	return &RequestsController{lifecycle: lifecycle}
}

func (c *RequestsController) Register(r *mux.Router) {
	sub := r.PathPrefix("/requests").Subrouter()
	sub.HandleFunc("", c.create).Methods(http.MethodPost)
	sub.HandleFunc("", c.list).Methods(http.MethodGet)
	sub.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
	sub.HandleFunc("/{id}/cancel", c.cancel).Methods(http.MethodPost)
	sub.HandleFunc("/{id}/signature", c.signature).Methods(http.MethodGet)
}

func (c *RequestsController) create(w http.ResponseWriter, r *http.Request) {
	var body dtos.CreateRequestBody
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	req, signURL, err := c.lifecycle.Create(r.Context(), services.CreateRequestParams{
		ExternalRef:     body.ExternalRef,
		ExternalType:    body.ExternalType,
		DocumentName:    body.DocumentName,
		DocumentContent: body.DocumentContent,
		DocumentURL:     body.DocumentURL,
		TemplateCode:    body.TemplateCode,
		MergeVariables:  body.MergeVariables,
		Jurisdiction:    body.Jurisdiction,
		SignerName:      body.SignerName,
		SignerEmail:     body.SignerEmail,
		SignerPhone:     body.SignerPhone,
		CallbackURL:     body.CallbackURL,
		CreatedBy:       body.CreatedBy,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"request": toRequestResponse(req),
		"signUrl": signURL,
	})
}

func (c *RequestsController) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := &signrequest.FindParams{
		Status:       signrequest.Status(q.Get("status")),
		ExternalRef:  q.Get("externalRef"),
		ExternalType: q.Get("externalType"),
		SignerEmail:  q.Get("signerEmail"),
		CreatedBy:    q.Get("createdBy"),
		Jurisdiction: q.Get("jurisdiction"),
		Limit:        queryInt(q.Get("limit"), 50),
		Offset:       queryInt(q.Get("offset"), 0),
	}
	reqs, err := c.lifecycle.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]requestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out})
}

// get resolves {id} as a UUID first, then falls back to the human-readable
// reference code.
func (c *RequestsController) get(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["id"]
	var (
		req *signrequest.Request
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		req, err = c.lifecycle.GetByID(r.Context(), id)
	} else {
		req, err = c.lifecycle.GetByReferenceCode(r.Context(), ref)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (c *RequestsController) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "request id must be a UUID")
		return
	}
	req, err := c.lifecycle.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (c *RequestsController) signature(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "request id must be a UUID")
		return
	}
	sig, err := c.lifecycle.GetSignature(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 sig.ID.String(),
		"requestId":          sig.RequestID.String(),
		"signatureType":      string(sig.Kind),
		"typedName":          sig.TypedName,
		"signerIp":           sig.SignerIP,
		"userAgent":          sig.UserAgent,
		"consentText":        sig.ConsentText,
		"verificationMethod": sig.VerificationMethodUsed,
		"signedAt":           sig.SignedAt.UTC(),
	})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
