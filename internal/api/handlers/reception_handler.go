package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// ReceptionService defines the registration and queue operations
type ReceptionService interface {
	RegisterVisit(ctx context.Context, req services.RegistrationRequest) (*services.RegistrationResult, error)
	AssignToken(ctx context.Context, doctorID *string, visitDate string) (int, error)
	FindPatientByMobile(ctx context.Context, mobile string) (*entities.Patient, error)
	ListQueue(ctx context.Context, doctorID *string, visitDate string) ([]*entities.QueueEntry, error)
}

// DoctorDirectory lists the doctors a visit can be assigned to
type DoctorDirectory interface {
	ListDoctors(ctx context.Context) ([]*entities.Profile, error)
}

// ReceptionHandler handles registration and queue requests
type ReceptionHandler struct {
	service   ReceptionService
	directory DoctorDirectory
}

// NewReceptionHandler creates a new reception handler
func NewReceptionHandler(service ReceptionService, directory DoctorDirectory) *ReceptionHandler {
	return &ReceptionHandler{
		service:   service,
		directory: directory,
	}
}

// RegisterVisit handles POST /api/visits
func (h *ReceptionHandler) RegisterVisit(w http.ResponseWriter, r *http.Request) {
	var req services.RegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.RegisterVisit(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

type tokenRequest struct {
	DoctorID  *string `json:"doctor_id"`
	VisitDate string  `json:"visit_date"`
}

// AssignToken handles POST /api/tokens
func (h *ReceptionHandler) AssignToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	token, err := h.service.AssignToken(r.Context(), req.DoctorID, req.VisitDate)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"token_number": token,
	})
}

// SearchPatient handles GET /api/patients/search?mobile=
func (h *ReceptionHandler) SearchPatient(w http.ResponseWriter, r *http.Request) {
	mobile := r.URL.Query().Get("mobile")
	if mobile == "" {
		respondWithAppError(w, r, apperrors.NewValidationError("mobile query parameter is required"))
		return
	}

	patient, err := h.service.FindPatientByMobile(r.Context(), mobile)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, patient)
}

// ListQueue handles GET /api/queue?doctor_id=&date=
func (h *ReceptionHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	entries, err := h.service.ListQueue(r.Context(), optionalString(query.Get("doctor_id")), query.Get("date"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queue": entries,
		"count": len(entries),
	})
}

// ListDoctors handles GET /api/doctors
func (h *ReceptionHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.directory.ListDoctors(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"doctors": doctors,
		"count":   len(doctors),
	})
}
