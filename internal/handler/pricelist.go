package handler

import (
	"net/http"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
)

// PriceListHandler exposes tenant-scoped price list endpoints,
// including batch reordering
type PriceListHandler struct {
	items   domain.PriceListRepository
	respond *respond.Responder
}

// NewPriceListHandler creates the price list handler
func NewPriceListHandler(items domain.PriceListRepository, responder *respond.Responder) *PriceListHandler {
	return &PriceListHandler{items: items, respond: responder}
}

type priceItemInput struct {
	ItemName        string `json:"itemName"`
	ItemDuration    string `json:"itemDuration"`
	ItemDescription string `json:"itemDescription"`
	ItemPrice       string `json:"itemPrice"`
}

// List handles GET /api/v1/pricelist
func (h *PriceListHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	items, err := h.items.List(r.Context(), tenantID, ParseListOptions(r.URL.Query()))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(items), items)
}

// Get handles GET /api/v1/pricelist/{id}
func (h *PriceListHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	item, err := h.items.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, item)
}

// Create handles POST /api/v1/pricelist
func (h *PriceListHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var input priceItemInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.ItemName == "" || input.ItemPrice == "" {
		h.respond.Error(w, r, apperror.Validation("A price item must have a name and a price"))
		return
	}

	item := &domain.PriceItem{
		TenantID:        tenantID,
		ItemName:        input.ItemName,
		ItemDuration:    input.ItemDuration,
		ItemDescription: input.ItemDescription,
		ItemPrice:       input.ItemPrice,
	}
	if err := h.items.Create(r.Context(), item); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusCreated, item)
}

// Update handles PATCH /api/v1/pricelist/{id}
func (h *PriceListHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	item, err := h.items.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	var input priceItemInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.ItemName != "" {
		item.ItemName = input.ItemName
	}
	if input.ItemDuration != "" {
		item.ItemDuration = input.ItemDuration
	}
	if input.ItemDescription != "" {
		item.ItemDescription = input.ItemDescription
	}
	if input.ItemPrice != "" {
		item.ItemPrice = input.ItemPrice
	}

	if err := h.items.Update(r.Context(), item); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/pricelist/{id}
func (h *PriceListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	if err := h.items.Delete(r.Context(), tenantID, r.PathValue("id")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}

// UpdateOrder handles PUT /api/v1/pricelist/order with the full new
// ordering as a batch
func (h *PriceListHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var order []domain.OrderUpdate
	if err := decodeJSON(r, &order); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if err := h.items.UpdateOrder(r.Context(), tenantID, order); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	items, err := h.items.List(r.Context(), tenantID, domain.ListOptions{Limit: 100})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(items), items)
}
