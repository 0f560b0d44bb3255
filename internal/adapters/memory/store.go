package memory

import (
	"context"
	"sync"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
)

type counterKey struct {
	doctorKey string
	visitDate string
}

type state struct {
	patients      map[string]entities.Patient
	visits        map[string]entities.Visit
	counters      map[counterKey]int
	prescriptions map[string]entities.Prescription
	rxLines       map[string][]entities.PrescriptionLine
	medicines     map[string]entities.Medicine
	batches       map[string]entities.InventoryBatch
	dispenses     map[string]entities.DispenseRecord
	bills         map[string]entities.Bill
	billLines     map[string][]entities.BillLine
	payments      map[string]entities.Payment
	beds          map[string]entities.Bed
	admissions    map[string]entities.Admission
	profiles      map[string]entities.Profile
	seqs          map[string]int64
	nextSeq       int64
}

func newState() *state {
	return &state{
		patients:      map[string]entities.Patient{},
		visits:        map[string]entities.Visit{},
		counters:      map[counterKey]int{},
		prescriptions: map[string]entities.Prescription{},
		rxLines:       map[string][]entities.PrescriptionLine{},
		medicines:     map[string]entities.Medicine{},
		batches:       map[string]entities.InventoryBatch{},
		dispenses:     map[string]entities.DispenseRecord{},
		bills:         map[string]entities.Bill{},
		billLines:     map[string][]entities.BillLine{},
		payments:      map[string]entities.Payment{},
		beds:          map[string]entities.Bed{},
		admissions:    map[string]entities.Admission{},
		profiles:      map[string]entities.Profile{},
		seqs:          map[string]int64{},
	}
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *state) clone() *state {
	return &state{
		patients:      copyMap(s.patients),
		visits:        copyMap(s.visits),
		counters:      copyMap(s.counters),
		prescriptions: copyMap(s.prescriptions),
		rxLines:       copyMap(s.rxLines),
		medicines:     copyMap(s.medicines),
		batches:       copyMap(s.batches),
		dispenses:     copyMap(s.dispenses),
		bills:         copyMap(s.bills),
		billLines:     copyMap(s.billLines),
		payments:      copyMap(s.payments),
		beds:          copyMap(s.beds),
		admissions:    copyMap(s.admissions),
		profiles:      copyMap(s.profiles),
		seqs:          copyMap(s.seqs),
		nextSeq:       s.nextSeq,
	}
}

// track records insertion order for tie-breaking on equal timestamps
func (s *state) track(id string) {
	s.nextSeq++
	s.seqs[id] = s.nextSeq
}

type txKey struct{}

type tx struct {
	store *Store
	state *state
}

// Store is a transactional in-memory ledger. Transactions are serialised and
// run against a copy of the state that replaces it only on commit.
type Store struct {
	mu    sync.Mutex
	state *state
	fault func(op string) error
}

var _ repositories.TxManager = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newState()}
}

// SetFault installs a hook consulted before every write; a non-nil error
// fails that write as the database would.
func (s *Store) SetFault(fault func(op string) error) {
	s.mu.Lock()
	s.fault = fault
	s.mu.Unlock()
}

// WithinTx runs fn against a private copy of the state and commits it when
// fn succeeds. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok && t.store == s {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s, state: s.state.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = t.state
	return nil
}

// Ping reports whether the store can serve requests
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// read runs fn against the transaction state in ctx, or the committed state
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok && t.store == s {
		return fn(t.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// write is read plus the fault hook; outside a transaction the change applies
// only when fn succeeds.
func (s *Store) write(ctx context.Context, op string, fn func(st *state) error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok && t.store == s {
		if s.fault != nil {
			if err := s.fault(op); err != nil {
				return err
			}
		}
		return fn(t.state)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		if err := s.fault(op); err != nil {
			return err
		}
	}
	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Patients returns the patient repository
func (s *Store) Patients() *PatientRepository { return &PatientRepository{store: s} }

// Visits returns the visit repository
func (s *Store) Visits() *VisitRepository { return &VisitRepository{store: s} }

// Prescriptions returns the prescription repository
func (s *Store) Prescriptions() *PrescriptionRepository { return &PrescriptionRepository{store: s} }

// Inventory returns the inventory repository
func (s *Store) Inventory() *InventoryRepository { return &InventoryRepository{store: s} }

// Dispenses returns the dispense repository
func (s *Store) Dispenses() *DispenseRepository { return &DispenseRepository{store: s} }

// Bills returns the bill repository
func (s *Store) Bills() *BillRepository { return &BillRepository{store: s} }

// Beds returns the bed repository
func (s *Store) Beds() *BedRepository { return &BedRepository{store: s} }

// Profiles returns the profile repository
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{store: s} }
