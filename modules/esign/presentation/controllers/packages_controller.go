package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signpackage"
	"github.com/showconnect/esign/modules/esign/presentation/controllers/dtos"
	"github.com/showconnect/esign/modules/esign/services"
)

// PackagesController is the admin surface for multi-party signing packages.
type PackagesController struct {
	packages *services.PackageService
}

func NewPackagesController(packages *services.PackageService) *PackagesController {
	return &PackagesController{packages: packages}
}

func (c *PackagesController) Register(r *mux.Router) {
	sub := r.PathPrefix("/packages").Subrouter()
	sub.HandleFunc("", c.create).Methods(http.MethodPost)
	sub.HandleFunc("", c.list).Methods(http.MethodGet)
	sub.HandleFunc("/batch", c.batch).Methods(http.MethodPost)
	sub.HandleFunc("/age-requirements", c.ageRequirements).Methods(http.MethodGet)
	sub.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
	sub.HandleFunc("/{id}/roles/{roleId}/replace", c.replaceSigner).Methods(http.MethodPost)
}

func (c *PackagesController) create(w http.ResponseWriter, r *http.Request) {
	var body dtos.CreatePackageBody
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	assignments := make([]signpackage.Assignment, 0, len(body.Signers))
	for _, s := range body.Signers {
		assignments = append(assignments, signpackage.Assignment{
			Role:           s.Role,
			Name:           s.Name,
			Email:          s.Email,
			Phone:          s.Phone,
			DateOfBirth:    s.DateOfBirth,
			IsMinor:        s.IsMinor,
			IsPackageAdmin: s.IsPackageAdmin,
		})
	}
	status, err := c.packages.Create(r.Context(), services.CreatePackageParams{
		ExternalRef:     body.ExternalRef,
		ExternalType:    body.ExternalType,
		DocumentName:    body.DocumentName,
		DocumentContent: body.DocumentContent,
		TemplateCode:    body.TemplateCode,
		Jurisdiction:    body.Jurisdiction,
		MergeVariables:  body.MergeVariables,
		EventDate:       body.EventDate,
		Assignments:     assignments,
		CallbackURL:     body.CallbackURL,
		CreatedBy:       body.CreatedBy,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPackageResponse(status.Package, status.Roles))
}

func (c *PackagesController) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := &signpackage.FindParams{
		Status:      signpackage.Status(q.Get("status")),
		ExternalRef: q.Get("externalRef"),
		Limit:       queryInt(q.Get("limit"), 50),
		Offset:      queryInt(q.Get("offset"), 0),
	}
	pkgs, err := c.packages.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]packageResponse, 0, len(pkgs))
	for _, pkg := range pkgs {
		out = append(out, toPackageResponse(pkg, nil))
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": out})
}

func (c *PackagesController) batch(w http.ResponseWriter, r *http.Request) {
	var body dtos.BatchPackagesBody
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	result, err := c.packages.GetBatch(r.Context(), body.Codes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	found := make([]packageResponse, 0, len(result.Found))
	for _, status := range result.Found {
		found = append(found, toPackageResponse(status.Package, status.Roles))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"packages": found,
		"notFound": result.NotFound,
	})
}

func (c *PackagesController) ageRequirements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ageRequirements": c.packages.AgeRequirements()})
}

func (c *PackagesController) get(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["id"]
	var (
		status *services.PackageStatus
		err    error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		status, err = c.packages.GetByID(r.Context(), id)
	} else {
		status, err = c.packages.GetByCode(r.Context(), ref)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageResponse(status.Package, status.Roles))
}

func (c *PackagesController) replaceSigner(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	packageID, err := uuid.Parse(vars["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "package id must be a UUID")
		return
	}
	roleID, err := uuid.Parse(vars["roleId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "role id must be a UUID")
		return
	}
	var body dtos.ReplaceSignerBody
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	req, signURL, err := c.packages.ReplaceSigner(r.Context(), packageID, services.ReplaceSignerParams{
		RoleID:      roleID,
		Name:        body.Name,
		Email:       body.Email,
		Phone:       body.Phone,
		DateOfBirth: body.DateOfBirth,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request": toRequestResponse(req),
		"signUrl": signURL,
	})
}
