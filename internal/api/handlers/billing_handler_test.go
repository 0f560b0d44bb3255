package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicflow/internal/api/handlers"
	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

func TestBillingHandler_FinalizeBill(t *testing.T) {
	svc := new(MockBillingService)
	handler := handlers.NewBillingHandler(svc)

	want := services.FinalizeRequest{
		PatientID:   "p-1",
		Extras:      []services.ExtraCharge{{Name: "Consultation", Quantity: 1, UnitPrice: 50000}},
		PaymentMode: entities.PaymentModeUPI,
	}
	svc.On("FinalizeBill", mock.Anything, want).Return(&services.BillResult{BillID: "bill-1", Total: 58000}, nil)

	body := `{"patient_id":"p-1","extras":[{"name":"Consultation","quantity":1,"unit_price":50000}],"payment_mode":"upi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/bills", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.FinalizeBill(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"bill_id":"bill-1","total_amount":58000}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestBillingHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "empty bill", err: apperrors.NewEmptyBillError("patient p-1 has nothing to bill"), wantStatus: http.StatusUnprocessableEntity, wantError: "patient p-1 has nothing to bill"},
		{name: "concurrent billing", err: apperrors.NewConflictError("items were billed concurrently"), wantStatus: http.StatusConflict, wantError: "items were billed concurrently"},
		{name: "bad payment mode", err: apperrors.NewValidationError(`invalid payment mode "cheque"`), wantStatus: http.StatusBadRequest, wantError: `invalid payment mode "cheque"`},
		{name: "internal detail hidden", err: apperrors.NewInternalError("failed to build insert query", errors.New("secret")), wantStatus: http.StatusInternalServerError, wantError: "internal server error"},
		{name: "foreign error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantError: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBillingService)
			handler := handlers.NewBillingHandler(svc)
			svc.On("FinalizeBill", mock.Anything, mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/bills", strings.NewReader(`{"patient_id":"p-1","payment_mode":"cash"}`))
			w := httptest.NewRecorder()

			handler.FinalizeBill(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp["error"])
		})
	}
}

func TestBillingHandler_PendingForPatient(t *testing.T) {
	svc := new(MockBillingService)
	handler := handlers.NewBillingHandler(svc)

	svc.On("PendingForPatient", mock.Anything, "p-1").Return(&services.PendingBill{
		PatientID: "p-1",
		Lines: []*entities.PendingDispense{
			{DispenseID: "d-1", PatientID: "p-1", MedicineName: "Paracetamol", Quantity: 1, UnitPrice: 3000},
		},
		Subtotal: 3000,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/patients/p-1/pending-bill", nil)
	req.SetPathValue("id", "p-1")
	w := httptest.NewRecorder()

	handler.PendingForPatient(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp services.PendingBill
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, entities.Money(3000), resp.Subtotal)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "Paracetamol", resp.Lines[0].MedicineName)
}
