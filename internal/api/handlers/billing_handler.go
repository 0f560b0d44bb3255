package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// BillingService defines the billing operations
type BillingService interface {
	PendingForPatient(ctx context.Context, patientID string) (*services.PendingBill, error)
	FinalizeBill(ctx context.Context, req services.FinalizeRequest) (*services.BillResult, error)
	PendingPatients(ctx context.Context) ([]*entities.PatientBalance, error)
	GetBill(ctx context.Context, id string) (*entities.Bill, error)
}

// BillingHandler handles billing desk requests
type BillingHandler struct {
	service BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(service BillingService) *BillingHandler {
	return &BillingHandler{service: service}
}

// PendingPatients handles GET /api/billing/pending
func (h *BillingHandler) PendingPatients(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.PendingPatients(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients": balances,
		"count":    len(balances),
	})
}

// PendingForPatient handles GET /api/patients/{id}/pending-bill
func (h *BillingHandler) PendingForPatient(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.PendingForPatient(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, pending)
}

// FinalizeBill handles POST /api/bills
func (h *BillingHandler) FinalizeBill(w http.ResponseWriter, r *http.Request) {
	var req services.FinalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.FinalizeBill(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// GetBill handles GET /api/bills/{id}
func (h *BillingHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.GetBill(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, bill)
}
