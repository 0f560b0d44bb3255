package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicflow/internal/adapters/memory"
	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

const testDay = "2026-03-02"

// recordingBus captures published events
type recordingBus struct {
	mu     sync.Mutex
	events []*entities.DomainEvent
	err    error
}

func (b *recordingBus) Publish(ctx context.Context, channel string, event *entities.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DomainEvent, error) {
	return make(chan *entities.DomainEvent), nil
}

func (b *recordingBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) ofType(t entities.EventType) []*entities.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*entities.DomainEvent
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store *memory.Store
	bus   *recordingBus
	clock services.Clock

	tokens        *services.TokenService
	prescriptions *services.PrescriptionService
	inventory     *services.InventoryService
	billing       *services.BillingService
	beds          *services.BedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	bus := &recordingBus{}
	clock := services.Clock{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) },
	}

	return &fixture{
		store: store,
		bus:   bus,
		clock: clock,
		tokens: services.NewTokenService(store, store.Patients(), store.Visits(), bus, clock, services.TokenConfig{
			DefaultRegion: "IN",
			MaxAttempts:   5,
		}, nil),
		prescriptions: services.NewPrescriptionService(store, store.Visits(), store.Prescriptions(), bus, clock),
		inventory:     services.NewInventoryService(store, store.Inventory(), store.Prescriptions(), store.Dispenses(), bus, clock, 20, nil),
		billing:       services.NewBillingService(store, store.Patients(), store.Dispenses(), store.Bills(), bus, clock, nil),
		beds:          services.NewBedService(store, store.Beds(), store.Patients(), bus, clock, nil),
	}
}

func strPtr(s string) *string { return &s }

// register queues a new patient with doctor for testDay
func (f *fixture) register(t *testing.T, name, mobile string, doctorID *string) *services.RegistrationResult {
	t.Helper()
	result, err := f.tokens.RegisterVisit(context.Background(), services.RegistrationRequest{
		Name:      name,
		Age:       30,
		Mobile:    mobile,
		Symptoms:  "fever",
		DoctorID:  doctorID,
		VisitDate: testDay,
	})
	require.NoError(t, err)
	return result
}

// prescribe registers a patient and records a prescription for the given medicines
func (f *fixture) prescribe(t *testing.T, mobile string, medicines ...string) (string, *services.RegistrationResult) {
	t.Helper()
	reg := f.register(t, "Patient "+mobile, mobile, strPtr("doc-1"))

	lines := make([]services.PrescriptionLineReq, 0, len(medicines))
	for _, m := range medicines {
		lines = append(lines, services.PrescriptionLineReq{MedicineName: m, Dosage: "1-0-1", Duration: "3 days"})
	}
	id, err := f.prescriptions.RecordPrescription(context.Background(), services.PrescriptionRequest{
		VisitID:   reg.Visit.ID,
		Diagnosis: "Viral fever",
		Lines:     lines,
	})
	require.NoError(t, err)
	return id, reg
}

// stock adds a batch and returns it
func (f *fixture) stock(t *testing.T, medicine, batchNo, expiry string, qty int, price entities.Money) *entities.InventoryBatch {
	t.Helper()
	batch, err := f.inventory.AddStock(context.Background(), services.StockRequest{
		MedicineName: medicine,
		BatchNo:      batchNo,
		Expiry:       expiry,
		Quantity:     qty,
		UnitPrice:    price,
	})
	require.NoError(t, err)
	return batch
}

func (f *fixture) batchQty(t *testing.T, id string) int {
	t.Helper()
	batches, err := f.inventory.ListInventory(context.Background())
	require.NoError(t, err)
	for _, b := range batches {
		if b.ID == id {
			return b.Quantity
		}
	}
	t.Fatalf("batch %s not found", id)
	return 0
}
