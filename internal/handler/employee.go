package handler

import (
	"net/http"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/storage"
)

// EmployeeHandler exposes tenant-scoped employee endpoints
type EmployeeHandler struct {
	employees domain.EmployeeRepository
	images    storage.ImageStore
	respond   *respond.Responder
}

// NewEmployeeHandler creates the employee handler
func NewEmployeeHandler(employees domain.EmployeeRepository, images storage.ImageStore, responder *respond.Responder) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, images: images, respond: responder}
}

type employeeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Signature   string `json:"signature"`
	ImageName   string `json:"imageName"`
}

// List handles GET /api/v1/employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	employees, err := h.employees.List(r.Context(), tenantID, ParseListOptions(r.URL.Query()))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(employees), SelectFields(employees, r.URL.Query().Get("fields")))
}

// Get handles GET /api/v1/employees/{id}
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	employee, err := h.employees.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, employee)
}

// Create handles POST /api/v1/employees
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var input employeeInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.Name == "" {
		h.respond.Error(w, r, apperror.Validation("An employee must have a name"))
		return
	}

	employee := &domain.Employee{
		TenantID:    tenantID,
		Name:        input.Name,
		Description: input.Description,
		Signature:   input.Signature,
		ImageName:   input.ImageName,
	}
	if err := h.employees.Create(r.Context(), employee); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusCreated, employee)
}

// Update handles PATCH /api/v1/employees/{id}
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	employee, err := h.employees.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	var input employeeInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.Name != "" {
		employee.Name = input.Name
	}
	if input.Description != "" {
		employee.Description = input.Description
	}
	if input.Signature != "" {
		employee.Signature = input.Signature
	}
	if input.ImageName != "" {
		employee.ImageName = input.ImageName
	}

	if err := h.employees.Update(r.Context(), employee); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, employee)
}

// Delete handles DELETE /api/v1/employees/{id}
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	if err := h.employees.Delete(r.Context(), tenantID, r.PathValue("id")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}

// UploadImage handles POST /api/v1/employees/{id}/image
func (h *EmployeeHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	employee, err := h.employees.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	name, err := saveUploadedImage(r, h.images, tenantID)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if employee.ImageName != "" {
		_ = h.images.Remove(tenantID, employee.ImageName)
	}

	employee.ImageName = name
	if err := h.employees.Update(r.Context(), employee); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, employee)
}
