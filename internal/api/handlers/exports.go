package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/erpsync/backend/internal/api/dto"
	appsync "github.com/erpsync/backend/internal/application/sync"
)

// ExportsHandler pushes local changes back to the platform.
type ExportsHandler struct {
	*Base
	orch *appsync.Orchestrator
}

// NewExportsHandler creates a new exports handler.
func NewExportsHandler(orch *appsync.Orchestrator) *ExportsHandler {
	return &ExportsHandler{
		Base: &Base{},
		orch: orch,
	}
}

// Product handles POST /api/export/products - pushes one product by SKU.
func (h *ExportsHandler) Product(w http.ResponseWriter, r *http.Request) {
	var req dto.ExportProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SKU == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("sku is required"))
		return
	}

	if err := h.orch.ExportProductBySKU(r.Context(), req.SKU); err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("export_failed", err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "product exported"})
}

// OrderStatus handles POST /api/export/orders - pushes one order's status.
func (h *ExportsHandler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.ExportOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Number == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("number is required"))
		return
	}

	if err := h.orch.ExportOrderStatus(r.Context(), req.Number); err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("export_failed", err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "order status exported"})
}
