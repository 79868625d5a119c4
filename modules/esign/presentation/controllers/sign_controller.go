package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/modules/esign/presentation/controllers/dtos"
	"github.com/showconnect/esign/modules/esign/services"
)

// SignController serves the public, capability-token surface. Nothing here
// requires the API key: possession of a live token is the credential.
type SignController struct {
	lifecycle    *services.LifecycleService
	verification *services.VerificationService
	codeLimit    mux.MiddlewareFunc
}

func NewSignController(
	lifecycle *services.LifecycleService,
	verification *services.VerificationService,
	codeLimit mux.MiddlewareFunc,
) *SignController {
	return &SignController{
		lifecycle:    lifecycle,
		verification: verification,
		codeLimit:    codeLimit,
	}
}

func (c *SignController) Register(r *mux.Router) {
	sub := r.PathPrefix("/sign").Subrouter()
	sub.HandleFunc("/{token}", c.view).Methods(http.MethodGet)
	sub.Handle("/{token}/verify", c.withCodeLimit(http.HandlerFunc(c.sendCode))).Methods(http.MethodPost)
	sub.HandleFunc("/{token}/confirm", c.confirmCode).Methods(http.MethodPost)
	sub.HandleFunc("/{token}/submit", c.submit).Methods(http.MethodPost)
	sub.HandleFunc("/{token}/decline", c.decline).Methods(http.MethodPost)
}

// withCodeLimit wraps the code-dispatch endpoint with the per-client-IP
// limiter. The destination and token counters live in the service; this
// layer only throttles raw request volume.
func (c *SignController) withCodeLimit(next http.Handler) http.Handler {
	if c.codeLimit == nil {
		return next
	}
	return c.codeLimit(next)
}

func (c *SignController) view(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	req, tok, err := c.lifecycle.GetByToken(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSigningView(req, tok))
}

// sendCode dispatches a verification code. The body is optional: a signer on
// a both-method request may pick the channel; everyone else just POSTs.
func (c *SignController) sendCode(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	var body dtos.SendCodeRequest
	if err := decodeJSON(r.Body, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	dispatch, err := c.verification.SendCode(r.Context(), token, body.Method)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if dispatch == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sent": false, "alreadyVerified": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sent":        true,
		"method":      string(dispatch.Method),
		"destination": dispatch.Destination,
	})
}

func (c *SignController) confirmCode(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	var body dtos.ConfirmCodeRequest
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := c.verification.ConfirmCode(r.Context(), token, body.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verified": true})
}

func (c *SignController) submit(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	var body dtos.SubmitSignatureRequest
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	req, err := c.lifecycle.Submit(r.Context(), token, services.SubmitSignatureParams{
		Kind:        signrequest.SignatureKind(body.SignatureType),
		TypedName:   body.TypedName,
		ImageData:   body.SignatureData,
		ConsentText: body.ConsentText,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (c *SignController) decline(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	var body dtos.DeclineRequest
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	req, err := c.lifecycle.Decline(r.Context(), token, body.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}
