package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// DispenseRepository implements repositories.DispenseRepository
type DispenseRepository struct {
	store *Store
}

var _ repositories.DispenseRepository = (*DispenseRepository)(nil)

// Create appends a dispense record; one record per prescription line
func (r *DispenseRepository) Create(ctx context.Context, record *entities.DispenseRecord) error {
	return r.store.write(ctx, "pharmacy_dispense.create", func(st *state) error {
		for _, d := range st.dispenses {
			if d.LineID == record.LineID {
				return apperrors.NewConflictError(fmt.Sprintf("line %s already dispensed", record.LineID))
			}
		}
		if _, ok := st.batches[record.BatchID]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("batch with id %s not found", record.BatchID))
		}
		d := *record
		d.BillID = nil
		st.dispenses[d.ID] = d
		st.track(d.ID)
		return nil
	})
}

// DispensedLineIDs returns the prescription lines that already have a record
func (r *DispenseRepository) DispensedLineIDs(ctx context.Context, prescriptionID string) (map[string]bool, error) {
	dispensed := make(map[string]bool)
	err := r.store.read(ctx, func(st *state) error {
		for _, d := range st.dispenses {
			if d.PrescriptionID == prescriptionID {
				dispensed[d.LineID] = true
			}
		}
		return nil
	})
	return dispensed, err
}

// ListPending returns the patient's unbilled records in dispense order
func (r *DispenseRepository) ListPending(ctx context.Context, patientID string, lock bool) ([]*entities.PendingDispense, error) {
	pending := make([]*entities.PendingDispense, 0)
	err := r.store.read(ctx, func(st *state) error {
		records := unbilled(st, func(rx entities.Prescription) bool { return rx.PatientID == patientID })
		for _, d := range records {
			pending = append(pending, &entities.PendingDispense{
				DispenseID:   d.ID,
				PatientID:    patientID,
				MedicineName: st.medicines[d.MedicineID].Name,
				Quantity:     d.Quantity,
				UnitPrice:    d.UnitPrice,
			})
		}
		return nil
	})
	return pending, err
}

// ListPendingPatients summarises unbilled records per patient
func (r *DispenseRepository) ListPendingPatients(ctx context.Context) ([]*entities.PatientBalance, error) {
	balances := make([]*entities.PatientBalance, 0)
	err := r.store.read(ctx, func(st *state) error {
		byPatient := make(map[string]*entities.PatientBalance)
		for _, d := range unbilled(st, func(entities.Prescription) bool { return true }) {
			patientID := st.prescriptions[d.PrescriptionID].PatientID
			b, ok := byPatient[patientID]
			if !ok {
				p := st.patients[patientID]
				b = &entities.PatientBalance{PatientID: patientID, PatientName: p.Name, Mobile: p.Mobile}
				byPatient[patientID] = b
				balances = append(balances, b)
			}
			b.ItemCount++
			b.Subtotal += d.UnitPrice.Times(d.Quantity)
		}
		sort.Slice(balances, func(i, j int) bool {
			if balances[i].PatientName != balances[j].PatientName {
				return balances[i].PatientName < balances[j].PatientName
			}
			return balances[i].PatientID < balances[j].PatientID
		})
		return nil
	})
	return balances, err
}

// MarkBilled stamps billID on the still-unbilled records among ids
func (r *DispenseRepository) MarkBilled(ctx context.Context, billID string, ids []string) (int, error) {
	marked := 0
	err := r.store.write(ctx, "pharmacy_dispense.mark_billed", func(st *state) error {
		for _, id := range ids {
			d, ok := st.dispenses[id]
			if !ok || d.BillID != nil {
				continue
			}
			stamp := billID
			d.BillID = &stamp
			st.dispenses[id] = d
			marked++
		}
		return nil
	})
	return marked, err
}

func unbilled(st *state, match func(entities.Prescription) bool) []entities.DispenseRecord {
	records := make([]entities.DispenseRecord, 0)
	for _, d := range st.dispenses {
		if d.BillID != nil {
			continue
		}
		rx, ok := st.prescriptions[d.PrescriptionID]
		if !ok || !match(rx) {
			continue
		}
		records = append(records, d)
	}
	sort.Slice(records, func(i, j int) bool { return st.seqs[records[i].ID] < st.seqs[records[j].ID] })
	return records
}
