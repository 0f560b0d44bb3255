package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// InventoryService defines the stock and dispensing operations
type InventoryService interface {
	AddStock(ctx context.Context, req services.StockRequest) (*entities.InventoryBatch, error)
	Dispense(ctx context.Context, prescriptionID string) ([]entities.DispenseOutcome, error)
	ListInventory(ctx context.Context) ([]*entities.InventoryBatch, error)
	LowStock(ctx context.Context, threshold int) ([]*entities.InventoryBatch, error)
}

// InventoryHandler handles pharmacy requests
type InventoryHandler struct {
	service InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(service InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// AddStock handles POST /api/inventory
func (h *InventoryHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req services.StockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	batch, err := h.service.AddStock(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, batch)
}

// ListInventory handles GET /api/inventory
func (h *InventoryHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListInventory(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"batches": batches,
		"count":   len(batches),
	})
}

// LowStock handles GET /api/inventory/low-stock?threshold=
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if v := r.URL.Query().Get("threshold"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondWithAppError(w, r, apperrors.NewValidationError("threshold must be an integer"))
			return
		}
		threshold = parsed
	}

	batches, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"batches": batches,
		"count":   len(batches),
	})
}

// Dispense handles POST /api/prescriptions/{id}/dispense
func (h *InventoryHandler) Dispense(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.service.Dispense(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"prescription_id": r.PathValue("id"),
		"outcomes":        outcomes,
	})
}
