package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

type MockReceptionService struct {
	mock.Mock
}

func (m *MockReceptionService) RegisterVisit(ctx context.Context, req services.RegistrationRequest) (*services.RegistrationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RegistrationResult), args.Error(1)
}

func (m *MockReceptionService) AssignToken(ctx context.Context, doctorID *string, visitDate string) (int, error) {
	args := m.Called(ctx, doctorID, visitDate)
	return args.Int(0), args.Error(1)
}

func (m *MockReceptionService) FindPatientByMobile(ctx context.Context, mobile string) (*entities.Patient, error) {
	args := m.Called(ctx, mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Patient), args.Error(1)
}

func (m *MockReceptionService) ListQueue(ctx context.Context, doctorID *string, visitDate string) ([]*entities.QueueEntry, error) {
	args := m.Called(ctx, doctorID, visitDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.QueueEntry), args.Error(1)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) ListDoctors(ctx context.Context) ([]*entities.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Profile), args.Error(1)
}

type MockPrescriptionService struct {
	mock.Mock
}

func (m *MockPrescriptionService) RecordPrescription(ctx context.Context, req services.PrescriptionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPrescriptionService) PatientHistory(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error) {
	args := m.Called(ctx, patientID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Prescription), args.Error(1)
}

func (m *MockPrescriptionService) GetPrescription(ctx context.Context, id string) (*entities.Prescription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Prescription), args.Error(1)
}

type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) AddStock(ctx context.Context, req services.StockRequest) (*entities.InventoryBatch, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InventoryBatch), args.Error(1)
}

func (m *MockInventoryService) Dispense(ctx context.Context, prescriptionID string) ([]entities.DispenseOutcome, error) {
	args := m.Called(ctx, prescriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.DispenseOutcome), args.Error(1)
}

func (m *MockInventoryService) ListInventory(ctx context.Context) ([]*entities.InventoryBatch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.InventoryBatch), args.Error(1)
}

func (m *MockInventoryService) LowStock(ctx context.Context, threshold int) ([]*entities.InventoryBatch, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.InventoryBatch), args.Error(1)
}

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) PendingForPatient(ctx context.Context, patientID string) (*services.PendingBill, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PendingBill), args.Error(1)
}

func (m *MockBillingService) FinalizeBill(ctx context.Context, req services.FinalizeRequest) (*services.BillResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BillResult), args.Error(1)
}

func (m *MockBillingService) PendingPatients(ctx context.Context) ([]*entities.PatientBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PatientBalance), args.Error(1)
}

func (m *MockBillingService) GetBill(ctx context.Context, id string) (*entities.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bill), args.Error(1)
}

type MockBedService struct {
	mock.Mock
}

func (m *MockBedService) AddBed(ctx context.Context, bedNumber, ward string) (*entities.Bed, error) {
	args := m.Called(ctx, bedNumber, ward)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bed), args.Error(1)
}

func (m *MockBedService) ListBeds(ctx context.Context) ([]*entities.Bed, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bed), args.Error(1)
}

func (m *MockBedService) ActiveAdmission(ctx context.Context, bedID string) (*entities.Admission, error) {
	args := m.Called(ctx, bedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Admission), args.Error(1)
}

func (m *MockBedService) Admit(ctx context.Context, bedID, patientID string) (*entities.Admission, error) {
	args := m.Called(ctx, bedID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Admission), args.Error(1)
}

func (m *MockBedService) Discharge(ctx context.Context, bedID string) (*entities.Admission, error) {
	args := m.Called(ctx, bedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Admission), args.Error(1)
}

func (m *MockBedService) MarkClean(ctx context.Context, bedID string) error {
	args := m.Called(ctx, bedID)
	return args.Error(0)
}
