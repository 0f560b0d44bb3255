package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/clinicflow/internal/api/handlers"
	"github.com/zatekoja/clinicflow/internal/api/middleware"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	receptionHandler    *handlers.ReceptionHandler
	prescriptionHandler *handlers.PrescriptionHandler
	inventoryHandler    *handlers.InventoryHandler
	billingHandler      *handlers.BillingHandler
	bedHandler          *handlers.BedHandler
	sseHandler          *handlers.SSEHandler

	health  HealthChecker
	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	receptionHandler *handlers.ReceptionHandler,
	prescriptionHandler *handlers.PrescriptionHandler,
	inventoryHandler *handlers.InventoryHandler,
	billingHandler *handlers.BillingHandler,
	bedHandler *handlers.BedHandler,
	sseHandler *handlers.SSEHandler,
	health HealthChecker,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		receptionHandler:    receptionHandler,
		prescriptionHandler: prescriptionHandler,
		inventoryHandler:    inventoryHandler,
		billingHandler:      billingHandler,
		bedHandler:          bedHandler,
		sseHandler:          sseHandler,
		health:              health,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthCheck)

	// Reception
	r.mux.HandleFunc("POST /api/visits", r.receptionHandler.RegisterVisit)
	r.mux.HandleFunc("POST /api/tokens", r.receptionHandler.AssignToken)
	r.mux.HandleFunc("GET /api/queue", r.receptionHandler.ListQueue)
	r.mux.HandleFunc("GET /api/patients/search", r.receptionHandler.SearchPatient)
	r.mux.HandleFunc("GET /api/doctors", r.receptionHandler.ListDoctors)

	// Consultation
	r.mux.HandleFunc("POST /api/prescriptions", r.prescriptionHandler.RecordPrescription)
	r.mux.HandleFunc("GET /api/prescriptions/{id}", r.prescriptionHandler.GetPrescription)
	r.mux.HandleFunc("GET /api/patients/{id}/history", r.prescriptionHandler.PatientHistory)

	// Pharmacy
	r.mux.HandleFunc("POST /api/inventory", r.inventoryHandler.AddStock)
	r.mux.HandleFunc("GET /api/inventory", r.inventoryHandler.ListInventory)
	r.mux.HandleFunc("GET /api/inventory/low-stock", r.inventoryHandler.LowStock)
	r.mux.HandleFunc("POST /api/prescriptions/{id}/dispense", r.inventoryHandler.Dispense)

	// Billing
	r.mux.HandleFunc("GET /api/billing/pending", r.billingHandler.PendingPatients)
	r.mux.HandleFunc("GET /api/patients/{id}/pending-bill", r.billingHandler.PendingForPatient)
	r.mux.HandleFunc("POST /api/bills", r.billingHandler.FinalizeBill)
	r.mux.HandleFunc("GET /api/bills/{id}", r.billingHandler.GetBill)

	// Ward
	r.mux.HandleFunc("POST /api/beds", r.bedHandler.AddBed)
	r.mux.HandleFunc("GET /api/beds", r.bedHandler.ListBeds)
	r.mux.HandleFunc("GET /api/beds/{id}/admission", r.bedHandler.ActiveAdmission)
	r.mux.HandleFunc("POST /api/beds/{id}/admit", r.bedHandler.Admit)
	r.mux.HandleFunc("POST /api/beds/{id}/discharge", r.bedHandler.Discharge)
	r.mux.HandleFunc("POST /api/beds/{id}/clean", r.bedHandler.MarkClean)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/events", r.sseHandler.StreamEvents)
	}

	// Last wrapper runs first. Nothing between the observability wrapper and
	// the mux may replace the request, or the matched route is lost.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.IdentityMiddleware(handler)

	return handler
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := healthStatus{Status: "ok"}
	code := http.StatusOK
	if r.health != nil {
		if err := r.health.Ping(req.Context()); err != nil {
			observability.LoggerFromContext(req.Context()).Warn().Err(err).Msg("health check failed")
			status.Status = "store unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	if r.sseHandler != nil {
		status.StreamClients = r.sseHandler.ClientCount()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		observability.LoggerFromContext(req.Context()).Warn().Err(err).Msg("failed to write health response")
	}
}

type healthStatus struct {
	Status        string `json:"status"`
	StreamClients int    `json:"stream_clients"`
}
