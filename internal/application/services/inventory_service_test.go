package services_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

func TestInventoryService_AddStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.stock(t, "Paracetamol", "P-1", "2027-01-31", 100, 250)
	second := f.stock(t, "paracetamol", "P-2", "2027-06-30", 50, 275)

	assert.Equal(t, first.MedicineID, second.MedicineID, "catalog match is case-insensitive")
	assert.Equal(t, "Paracetamol", second.MedicineName)

	medicine, err := f.store.Inventory().FindMedicineByName(ctx, "PARACETAMOL")
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultMedicineStrength, medicine.Strength)
	assert.Equal(t, entities.DefaultMedicineUnit, medicine.Unit)

	assert.Len(t, f.bus.ofType(entities.EventInventoryRestocked), 2)
}

func TestInventoryService_AddStock_Validation(t *testing.T) {
	valid := services.StockRequest{MedicineName: "Paracetamol", BatchNo: "P-1", Expiry: "2027-01-31", Quantity: 10, UnitPrice: 100}

	tests := []struct {
		name   string
		mutate func(r *services.StockRequest)
	}{
		{name: "missing name", mutate: func(r *services.StockRequest) { r.MedicineName = " " }},
		{name: "missing batch", mutate: func(r *services.StockRequest) { r.BatchNo = "" }},
		{name: "zero quantity", mutate: func(r *services.StockRequest) { r.Quantity = 0 }},
		{name: "negative price", mutate: func(r *services.StockRequest) { r.UnitPrice = -1 }},
		{name: "bad expiry", mutate: func(r *services.StockRequest) { r.Expiry = "31-01-2027" }},
		{name: "quantity out of range", mutate: func(r *services.StockRequest) { r.Quantity = entities.MaxQuantity + 1 }},
		{name: "stock value overflows", mutate: func(r *services.StockRequest) { r.UnitPrice = entities.Money(math.MaxInt64 / 5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := valid
			tt.mutate(&req)

			_, err := f.inventory.AddStock(context.Background(), req)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)
		})
	}
}

func TestInventoryService_Dispense_DrawsEarliestExpiryFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batchY := f.stock(t, "Amoxicillin", "Y", "2024-06-01", 10, 1200)
	batchX := f.stock(t, "Amoxicillin", "X", "2024-01-10", 5, 1000)

	rxID, _ := f.prescribe(t, "9876543210", "amoxicillin")

	outcomes, err := f.inventory.Dispense(ctx, rxID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, entities.OutcomeDispensed, outcomes[0].Kind)
	assert.Equal(t, batchX.ID, outcomes[0].BatchID)
	assert.Equal(t, 1, outcomes[0].Quantity)

	assert.Equal(t, 4, f.batchQty(t, batchX.ID))
	assert.Equal(t, 10, f.batchQty(t, batchY.ID))

	events := f.bus.ofType(entities.EventInventoryDispensed)
	require.Len(t, events, 1)
	assert.Equal(t, rxID, events[0].EntityID)
}

func TestInventoryService_Dispense_SameExpiryDrawsEarliestStocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.stock(t, "Cetirizine", "A", "2027-03-31", 3, 500)
	second := f.stock(t, "Cetirizine", "B", "2027-03-31", 3, 500)

	rxID, _ := f.prescribe(t, "9876543210", "Cetirizine")

	outcomes, err := f.inventory.Dispense(ctx, rxID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, first.ID, outcomes[0].BatchID)
	assert.Equal(t, 2, f.batchQty(t, first.ID))
	assert.Equal(t, 3, f.batchQty(t, second.ID))
}

func TestInventoryService_Dispense_SkipsEmptyBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	early := f.stock(t, "Cetirizine", "E", "2026-05-01", 1, 500)
	late := f.stock(t, "Cetirizine", "L", "2026-09-01", 3, 600)

	first, _ := f.prescribe(t, "9876543210", "Cetirizine")
	second, _ := f.prescribe(t, "9876543211", "Cetirizine")

	out1, err := f.inventory.Dispense(ctx, first)
	require.NoError(t, err)
	out2, err := f.inventory.Dispense(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, early.ID, out1[0].BatchID)
	assert.Equal(t, late.ID, out2[0].BatchID)
	assert.Equal(t, 0, f.batchQty(t, early.ID))
	assert.Equal(t, 2, f.batchQty(t, late.ID))
}

func TestInventoryService_Dispense_Outcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.stock(t, "Paracetamol", "P-1", "2027-01-31", 1, 250)
	empty := f.stock(t, "Ibuprofen", "I-1", "2027-01-31", 1, 300)

	// drain ibuprofen first
	drain, _ := f.prescribe(t, "9876543219", "Ibuprofen")
	_, err := f.inventory.Dispense(ctx, drain)
	require.NoError(t, err)
	require.Equal(t, 0, f.batchQty(t, empty.ID))

	rxID, _ := f.prescribe(t, "9876543210", "Paracetamol", "Ibuprofen", "Unobtainium")

	outcomes, err := f.inventory.Dispense(ctx, rxID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, entities.OutcomeDispensed, outcomes[0].Kind)
	assert.Equal(t, entities.OutcomeOutOfStock, outcomes[1].Kind)
	assert.Equal(t, entities.OutcomeMedicineUnknown, outcomes[2].Kind)
	assert.Equal(t, "Unobtainium", outcomes[2].MedicineName)

	// a retried call never deducts twice
	again, err := f.inventory.Dispense(ctx, rxID)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeAlreadyDispensed, again[0].Kind)
	assert.Equal(t, entities.OutcomeOutOfStock, again[1].Kind)
}

func TestInventoryService_Dispense_UnknownPrescription(t *testing.T) {
	f := newFixture(t)

	_, err := f.inventory.Dispense(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, f.bus.ofType(entities.EventInventoryDispensed))
}

func TestInventoryService_Dispense_NoEventWhenNothingDispensed(t *testing.T) {
	f := newFixture(t)
	rxID, _ := f.prescribe(t, "9876543210", "Unobtainium")

	outcomes, err := f.inventory.Dispense(context.Background(), rxID)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeMedicineUnknown, outcomes[0].Kind)
	assert.Empty(t, f.bus.ofType(entities.EventInventoryDispensed))
}

func TestInventoryService_Dispense_FailureRollsBackWholeCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch := f.stock(t, "Paracetamol", "P-1", "2027-01-31", 10, 250)
	rxID, _ := f.prescribe(t, "9876543210", "Paracetamol", "Paracetamol")

	// second line's record insert fails after the first line already deducted
	inserts := 0
	f.store.SetFault(func(op string) error {
		if op == "pharmacy_dispense.create" {
			inserts++
			if inserts == 2 {
				return apperrors.NewStoreUnavailableError("pharmacy_dispense.create", errors.New("timeout"))
			}
		}
		return nil
	})

	_, err := f.inventory.Dispense(ctx, rxID)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeStoreUnavailable))
	assert.Equal(t, 10, f.batchQty(t, batch.ID))

	done, err := f.store.Dispenses().DispensedLineIDs(ctx, rxID)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestInventoryService_Dispense_ConcurrentCallsNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const stock, callers = 10, 25
	batch := f.stock(t, "Paracetamol", "P-1", "2027-01-31", stock, 250)

	rxIDs := make([]string, callers)
	for i := range rxIDs {
		rxIDs[i], _ = f.prescribe(t, fmt.Sprintf("98765432%02d", i), "Paracetamol")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		dispensed int
		outOf     int
	)
	for _, id := range rxIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			outcomes, err := f.inventory.Dispense(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch outcomes[0].Kind {
			case entities.OutcomeDispensed:
				dispensed++
			case entities.OutcomeOutOfStock:
				outOf++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, stock, dispensed)
	assert.Equal(t, callers-stock, outOf)
	assert.Equal(t, 0, f.batchQty(t, batch.ID))
}

func TestInventoryService_LowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	low := f.stock(t, "Paracetamol", "P-1", "2027-01-31", 5, 250)
	f.stock(t, "Paracetamol", "P-2", "2027-02-28", 20, 250)
	f.stock(t, "Ibuprofen", "I-1", "2026-12-31", 50, 300)

	batches, err := f.inventory.LowStock(ctx, 0)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, low.ID, batches[0].ID)

	batches, err = f.inventory.LowStock(ctx, 60)
	require.NoError(t, err)
	assert.Len(t, batches, 3)

	all, err := f.inventory.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "I-1", all[0].BatchNo)
	assert.Equal(t, "Ibuprofen", all[0].MedicineName)
}
