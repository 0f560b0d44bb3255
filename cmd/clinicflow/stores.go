package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicflow/internal/adapters/database"
	"github.com/zatekoja/clinicflow/internal/adapters/memory"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/clinicflow/pkg/config"
)

const resetSQL = `TRUNCATE TABLE
	payments, bill_items, pharmacy_dispense, bills, inventory, medicines,
	prescription_medicines, prescriptions, appointments, token_counters,
	admissions, beds, patients, profiles
	CASCADE`

// profileWriter seeds staff profiles; production profiles come from the
// identity provider.
type profileWriter interface {
	Put(ctx context.Context, profile *entities.Profile) error
}

// ledger bundles the repositories of one store backend
type ledger struct {
	tx            repositories.TxManager
	patients      repositories.PatientRepository
	visits        repositories.VisitRepository
	prescriptions repositories.PrescriptionRepository
	inventory     repositories.InventoryRepository
	dispenses     repositories.DispenseRepository
	bills         repositories.BillRepository
	beds          repositories.BedRepository
	profiles      repositories.ProfileRepository
	profileWriter profileWriter

	ping  func(ctx context.Context) error
	reset func(ctx context.Context) error
	close func() error
}

// Ping implements routes.HealthChecker
func (l *ledger) Ping(ctx context.Context) error {
	return l.ping(ctx)
}

func openLedger(ctx context.Context, cfg *config.Config) (*ledger, error) {
	switch cfg.Clinic.Store {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &ledger{
			tx:            store,
			patients:      store.Patients(),
			visits:        store.Visits(),
			prescriptions: store.Prescriptions(),
			inventory:     store.Inventory(),
			dispenses:     store.Dispenses(),
			bills:         store.Bills(),
			beds:          store.Beds(),
			profiles:      store.Profiles(),
			profileWriter: store.Profiles(),
			ping:          store.Ping,
			reset:         func(ctx context.Context) error { return nil },
			close:         func() error { return nil },
		}, nil

	case config.StorePostgres:
		client, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
		profiles := database.NewProfileAdapter(client)
		return &ledger{
			tx:            client,
			patients:      database.NewPatientAdapter(client),
			visits:        database.NewVisitAdapter(client),
			prescriptions: database.NewPrescriptionAdapter(client),
			inventory:     database.NewInventoryAdapter(client),
			dispenses:     database.NewDispenseAdapter(client),
			bills:         database.NewBillAdapter(client),
			beds:          database.NewBedAdapter(client),
			profiles:      profiles,
			profileWriter: profiles,
			ping:          client.Ping,
			reset: func(ctx context.Context) error {
				_, err := client.DB().ExecContext(ctx, resetSQL)
				return err
			},
			close: client.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown store %q", cfg.Clinic.Store)
}
