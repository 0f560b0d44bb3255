package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

func setupMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db, 0), mock
}

func TestVisitAdapter_ReserveToken(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewVisitAdapter(client)

	mock.ExpectQuery(`INSERT INTO "token_counters" .*ON CONFLICT \(doctor_key, visit_date\) DO UPDATE .*token_counters\.last_token \+ 1.*RETURNING "last_token"`).
		WillReturnRows(sqlmock.NewRows([]string{"last_token"}).AddRow(7))

	token, err := adapter.ReserveToken(context.Background(), "doc-1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 7, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitAdapter_ReserveToken_SerializationFailureIsConflict(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewVisitAdapter(client)

	mock.ExpectQuery(`INSERT INTO "token_counters"`).
		WillReturnError(&pq.Error{Code: "40001"})

	_, err := adapter.ReserveToken(context.Background(), "", "2026-03-02")
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitAdapter_Complete_NotWaiting(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewVisitAdapter(client)

	mock.ExpectQuery(`UPDATE "appointments" SET "status"='completed' WHERE .*"status" = 'waiting'.*RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "visit_date", "token_number", "status", "created_at"}))

	_, err := adapter.Complete(context.Background(), "v-1")
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitAdapter_Complete(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewVisitAdapter(client)
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE "appointments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "visit_date", "token_number", "status", "created_at"}).
			AddRow("v-1", "p-1", "doc-1", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 3, "completed", created))

	visit, err := adapter.Complete(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, entities.VisitStatusCompleted, visit.Status)
	assert.Equal(t, "2026-03-02", visit.VisitDate)
	require.NotNil(t, visit.DoctorID)
	assert.Equal(t, "doc-1", *visit.DoctorID)
}

func TestInventoryAdapter_DecrementBatch(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "stock left", affected: 1, want: true},
		{name: "batch emptied concurrently", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := setupMockClient(t)
			adapter := NewInventoryAdapter(client)

			mock.ExpectExec(`UPDATE "inventory" SET "quantity"=quantity - 1 WHERE .*"quantity" >= 1`).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := adapter.DecrementBatch(context.Background(), "b-1", 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInventoryAdapter_LockEarliestBatch(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewInventoryAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "inventory" AS "i" .*WHERE .*"i"\."medicine_id" = 'm-1'.*"i"\."quantity" > 0.*ORDER BY "i"\."expiry" ASC, "i"\."created_at" ASC, "i"\."seq" ASC LIMIT 1 FOR UPDATE OF "i"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "medicine_id", "name", "batch_no", "expiry", "quantity", "mrp", "created_at"}))

	_, err := adapter.LockEarliestBatch(context.Background(), "m-1")
	assert.True(t, apperrors.IsNotFound(err), "an empty locking read means no stock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryAdapter_FindMedicineByName(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewInventoryAdapter(client)

	mock.ExpectQuery(`SELECT "id", "name", "strength", "unit" FROM "medicines" WHERE \(lower\("name"\) = lower\('paracetamol'\)\) LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "strength", "unit"}).AddRow("m-1", "Paracetamol", "500mg", "tab"))

	medicine, err := adapter.FindMedicineByName(context.Background(), "paracetamol")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", medicine.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispenseAdapter_MarkBilled(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewDispenseAdapter(client)

	mock.ExpectExec(`UPDATE "pharmacy_dispense" SET "bill_id"='bill-1' WHERE .*"id" IN \('d-1', 'd-2'\).*"bill_id" IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	marked, err := adapter.MarkBilled(context.Background(), "bill-1", []string{"d-1", "d-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, marked, "already billed rows are skipped")

	marked, err = adapter.MarkBilled(context.Background(), "bill-1", nil)
	require.NoError(t, err)
	assert.Zero(t, marked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBedAdapter_UpdateStatus_WithinTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	client := postgres.NewClientFromDB(db, 2*time.Second)
	adapter := NewBedAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL statement_timeout = 2000`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "beds" SET .*"status"='cleaning',"updated_at"='2026-03-02T09:30:00Z' WHERE .*"status" = 'occupied'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = client.WithinTx(context.Background(), func(ctx context.Context) error {
		at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
		ok, err := adapter.UpdateStatus(ctx, "bed-1", entities.BedStatusOccupied, entities.BedStatusCleaning, at)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewInvalidTransitionError("bed moved concurrently")
		}
		return nil
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileAdapter_Put_Upserts(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewProfileAdapter(client)

	mock.ExpectExec(`INSERT INTO "profiles" .*ON CONFLICT \(id\) DO UPDATE SET .*EXCLUDED\.full_name`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Put(context.Background(), &entities.Profile{ID: "doc-1", FullName: "Dr. Arjun Mehta", Role: entities.RoleDoctor})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
