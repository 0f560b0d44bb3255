package entities

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBedStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to BedStatus
		want     bool
	}{
		{BedStatusAvailable, BedStatusOccupied, true},
		{BedStatusOccupied, BedStatusCleaning, true},
		{BedStatusCleaning, BedStatusAvailable, true},
		{BedStatusAvailable, BedStatusCleaning, false},
		{BedStatusOccupied, BedStatusAvailable, false},
		{BedStatusCleaning, BedStatusOccupied, false},
		{BedStatusOccupied, BedStatusOccupied, false},
		{BedStatus("broken"), BedStatusAvailable, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, Money(4999), MoneyFromMajor(49.99))
	assert.Equal(t, Money(58000), MoneyFromMajor(580))
	assert.Equal(t, Money(15000), Money(5000).Times(3))
	assert.Equal(t, "580.00", Money(58000).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "-12.30", Money(-1230).String())
}

func TestSumLines(t *testing.T) {
	lines := []BillLine{
		{Quantity: 1, UnitPrice: 5000},
		{Quantity: 1, UnitPrice: 3000},
		{Quantity: 2, UnitPrice: 25000},
	}
	total, err := SumLines(lines)
	require.NoError(t, err)
	assert.Equal(t, Money(58000), total)

	total, err = SumLines(nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSumLines_Overflow(t *testing.T) {
	_, err := SumLines([]BillLine{{Quantity: 3, UnitPrice: math.MaxInt64 / 2}})
	assert.ErrorIs(t, err, ErrMoneyOverflow)

	_, err = SumLines([]BillLine{
		{Quantity: 1, UnitPrice: math.MaxInt64 - 10},
		{Quantity: 1, UnitPrice: 100},
	})
	assert.ErrorIs(t, err, ErrMoneyOverflow)
}

func TestMoney_Checked(t *testing.T) {
	p, ok := Money(5000).CheckedTimes(3)
	assert.True(t, ok)
	assert.Equal(t, Money(15000), p)

	_, ok = Money(math.MaxInt64 / 2).CheckedTimes(3)
	assert.False(t, ok)
	_, ok = Money(math.MinInt64).CheckedTimes(-1)
	assert.False(t, ok)

	sum, ok := Money(1).CheckedAdd(2)
	assert.True(t, ok)
	assert.Equal(t, Money(3), sum)
	_, ok = Money(math.MaxInt64).CheckedAdd(1)
	assert.False(t, ok)
	_, ok = Money(math.MinInt64).CheckedAdd(-1)
	assert.False(t, ok)
}

func TestInventoryBatch_ExpiresBefore(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

	x := &InventoryBatch{ID: "x", Expiry: jan, CreatedAt: created}
	y := &InventoryBatch{ID: "y", Expiry: jun, CreatedAt: created}
	assert.True(t, x.ExpiresBefore(y))
	assert.False(t, y.ExpiresBefore(x))

	older := &InventoryBatch{ID: "z", Expiry: jan, CreatedAt: created.Add(-time.Hour)}
	assert.True(t, older.ExpiresBefore(x), "equal expiry falls back to creation time")

	twin := &InventoryBatch{ID: "a", Expiry: jan, CreatedAt: created}
	assert.True(t, twin.ExpiresBefore(x))
}

func TestPaymentMode_Valid(t *testing.T) {
	assert.True(t, PaymentModeCash.Valid())
	assert.True(t, PaymentModeUPI.Valid())
	assert.True(t, PaymentModeCard.Valid())
	assert.False(t, PaymentMode("cheque").Valid())
	assert.False(t, PaymentMode("").Valid())
}

func TestPrescriptionLine_IsBlank(t *testing.T) {
	assert.True(t, PrescriptionLine{MedicineName: " ", Dosage: ""}.IsBlank())
	assert.False(t, PrescriptionLine{Dosage: "1-0-1"}.IsBlank())
	assert.False(t, PrescriptionLine{MedicineName: "Paracetamol"}.IsBlank())
}

func TestParseEventType(t *testing.T) {
	got, ok := ParseEventType("bill.finalized")
	assert.True(t, ok)
	assert.Equal(t, EventBillFinalized, got)

	_, ok = ParseEventType("bill.refunded")
	assert.False(t, ok)

	d := "doc-1"
	assert.Equal(t, "doc-1", DoctorKey(&d))
	assert.Equal(t, "", DoctorKey(nil))
}
