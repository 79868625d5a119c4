package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/showconnect/esign/modules/esign/domain/entities/jurisdiction"
	"github.com/showconnect/esign/modules/esign/presentation/controllers/dtos"
)

type JurisdictionsController struct {
	jurisdictions jurisdiction.Repository
}

func NewJurisdictionsController(jurisdictions jurisdiction.Repository) *JurisdictionsController {
	return &JurisdictionsController{jurisdictions: jurisdictions}
}

func (c *JurisdictionsController) Register(r *mux.Router) {
	sub := r.PathPrefix("/jurisdictions").Subrouter()
	sub.HandleFunc("", c.upsert).Methods(http.MethodPut)
	sub.HandleFunc("", c.list).Methods(http.MethodGet)
	sub.HandleFunc("/{code}", c.get).Methods(http.MethodGet)
}

func (c *JurisdictionsController) upsert(w http.ResponseWriter, r *http.Request) {
	var body dtos.JurisdictionBody
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	addendum := &jurisdiction.Addendum{
		Code:         strings.ToUpper(strings.TrimSpace(body.Code)),
		Name:         body.Name,
		AddendumHTML: body.AddendumHTML,
		IsActive:     true,
	}
	if body.IsActive != nil {
		addendum.IsActive = *body.IsActive
	}
	saved, err := c.jurisdictions.Upsert(r.Context(), addendum)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJurisdictionResponse(saved))
}

func (c *JurisdictionsController) list(w http.ResponseWriter, r *http.Request) {
	addendums, err := c.jurisdictions.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]jurisdictionResponse, 0, len(addendums))
	for _, a := range addendums {
		out = append(out, toJurisdictionResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jurisdictions": out})
}

func (c *JurisdictionsController) get(w http.ResponseWriter, r *http.Request) {
	addendum, err := c.jurisdictions.GetByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJurisdictionResponse(addendum))
}
