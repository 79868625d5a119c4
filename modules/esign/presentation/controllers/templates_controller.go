package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/showconnect/esign/modules/esign/domain/entities/doctemplate"
	"github.com/showconnect/esign/modules/esign/presentation/controllers/dtos"
)

type TemplatesController struct {
	templates doctemplate.Repository
}

func NewTemplatesController(templates doctemplate.Repository) *TemplatesController {
	return &TemplatesController{templates: templates}
}

func (c *TemplatesController) Register(r *mux.Router) {
	sub := r.PathPrefix("/templates").Subrouter()
	sub.HandleFunc("", c.create).Methods(http.MethodPost)
	sub.HandleFunc("", c.list).Methods(http.MethodGet)
	sub.HandleFunc("/{code}", c.get).Methods(http.MethodGet)
	sub.HandleFunc("/{code}", c.update).Methods(http.MethodPut)
	sub.HandleFunc("/{code}", c.deactivate).Methods(http.MethodDelete)
}

func (c *TemplatesController) create(w http.ResponseWriter, r *http.Request) {
	var body dtos.TemplateBody
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	tpl := &doctemplate.Template{
		Code:         body.Code,
		Name:         body.Name,
		Description:  body.Description,
		HTMLContent:  body.HTMLContent,
		Jurisdiction: body.Jurisdiction,
		Version:      1,
		IsActive:     true,
		CreatedBy:    body.CreatedBy,
	}
	if err := c.templates.Create(r.Context(), tpl); err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := c.templates.GetByCode(r.Context(), tpl.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateResponse(created))
}

func (c *TemplatesController) list(w http.ResponseWriter, r *http.Request) {
	tpls, err := c.templates.List(r.Context(), r.URL.Query().Get("jurisdiction"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]templateResponse, 0, len(tpls))
	for _, tpl := range tpls {
		out = append(out, toTemplateResponse(tpl))
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": out})
}

func (c *TemplatesController) get(w http.ResponseWriter, r *http.Request) {
	tpl, err := c.templates.GetByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

// update replaces the template body and bumps the stored version; requests
// created against the old body keep the version they snapshotted.
func (c *TemplatesController) update(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var body dtos.UpdateTemplateBody
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	tpl, err := c.templates.GetByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	tpl.Name = body.Name
	tpl.Description = body.Description
	tpl.HTMLContent = body.HTMLContent
	tpl.Jurisdiction = body.Jurisdiction
	if body.IsActive != nil {
		tpl.IsActive = *body.IsActive
	}
	if err := c.templates.Update(r.Context(), tpl); err != nil {
		writeServiceError(w, r, err)
		return
	}
	updated, err := c.templates.GetByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(updated))
}

func (c *TemplatesController) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := c.templates.Deactivate(r.Context(), mux.Vars(r)["code"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deactivated": true})
}
