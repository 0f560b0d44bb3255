package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// PrescriptionService defines the consultation operations
type PrescriptionService interface {
	RecordPrescription(ctx context.Context, req services.PrescriptionRequest) (string, error)
	PatientHistory(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error)
	GetPrescription(ctx context.Context, id string) (*entities.Prescription, error)
}

// PrescriptionHandler handles consultation requests
type PrescriptionHandler struct {
	service  PrescriptionService
	identity providers.IdentityProvider
}

// NewPrescriptionHandler creates a new prescription handler
func NewPrescriptionHandler(service PrescriptionService, identity providers.IdentityProvider) *PrescriptionHandler {
	return &PrescriptionHandler{
		service:  service,
		identity: identity,
	}
}

// RecordPrescription handles POST /api/prescriptions
func (h *PrescriptionHandler) RecordPrescription(w http.ResponseWriter, r *http.Request) {
	var req services.PrescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	// A doctor prescribing without naming one signs as themselves
	if req.DoctorID == "" && h.identity != nil {
		if user, err := h.identity.CurrentUser(r.Context()); err == nil && user.Role == entities.RoleDoctor {
			req.DoctorID = user.ID
		}
	}

	id, err := h.service.RecordPrescription(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"prescription_id": id,
	})
}

// GetPrescription handles GET /api/prescriptions/{id}
func (h *PrescriptionHandler) GetPrescription(w http.ResponseWriter, r *http.Request) {
	prescription, err := h.service.GetPrescription(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, prescription)
}

// PatientHistory handles GET /api/patients/{id}/history?limit=
func (h *PrescriptionHandler) PatientHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondWithAppError(w, r, apperrors.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	history, err := h.service.PatientHistory(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"prescriptions": history,
		"count":         len(history),
	})
}
