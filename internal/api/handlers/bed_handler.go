package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// BedService defines the bed occupancy operations
type BedService interface {
	AddBed(ctx context.Context, bedNumber, ward string) (*entities.Bed, error)
	ListBeds(ctx context.Context) ([]*entities.Bed, error)
	ActiveAdmission(ctx context.Context, bedID string) (*entities.Admission, error)
	Admit(ctx context.Context, bedID, patientID string) (*entities.Admission, error)
	Discharge(ctx context.Context, bedID string) (*entities.Admission, error)
	MarkClean(ctx context.Context, bedID string) error
}

// BedHandler handles ward requests
type BedHandler struct {
	service BedService
}

// NewBedHandler creates a new bed handler
func NewBedHandler(service BedService) *BedHandler {
	return &BedHandler{service: service}
}

type addBedRequest struct {
	BedNumber string `json:"bed_number"`
	Ward      string `json:"ward"`
}

type admitRequest struct {
	PatientID string `json:"patient_id"`
}

// AddBed handles POST /api/beds
func (h *BedHandler) AddBed(w http.ResponseWriter, r *http.Request) {
	var req addBedRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	bed, err := h.service.AddBed(r.Context(), req.BedNumber, req.Ward)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, bed)
}

// ListBeds handles GET /api/beds
func (h *BedHandler) ListBeds(w http.ResponseWriter, r *http.Request) {
	beds, err := h.service.ListBeds(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"beds":  beds,
		"count": len(beds),
	})
}

// ActiveAdmission handles GET /api/beds/{id}/admission
func (h *BedHandler) ActiveAdmission(w http.ResponseWriter, r *http.Request) {
	admission, err := h.service.ActiveAdmission(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, admission)
}

// Admit handles POST /api/beds/{id}/admit
func (h *BedHandler) Admit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	admission, err := h.service.Admit(r.Context(), r.PathValue("id"), req.PatientID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, admission)
}

// Discharge handles POST /api/beds/{id}/discharge
func (h *BedHandler) Discharge(w http.ResponseWriter, r *http.Request) {
	admission, err := h.service.Discharge(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, admission)
}

// MarkClean handles POST /api/beds/{id}/clean
func (h *BedHandler) MarkClean(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkClean(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"bed_id": r.PathValue("id"),
		"status": string(entities.BedStatusAvailable),
	})
}
