package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
	"github.com/zatekoja/clinicflow/pkg/config"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

var demoProfiles = []entities.Profile{
	{ID: "doc-1", FullName: "Dr. Arjun Mehta", Role: entities.RoleDoctor},
	{ID: "doc-2", FullName: "Dr. Kavya Rao", Role: entities.RoleDoctor},
	{ID: "pharm-1", FullName: "Meena Iyer", Role: entities.RolePharmacist},
	{ID: "desk-1", FullName: "Ravi Kumar", Role: entities.RoleReception},
	{ID: "bill-1", FullName: "Sunita Das", Role: entities.RoleBilling},
}

var demoBeds = []struct{ number, ward string }{
	{"G-101", "General"},
	{"G-102", "General"},
	{"G-103", "General"},
	{"ICU-1", "ICU"},
}

// Demo prices are listed in rupees
var demoStock = []services.StockRequest{
	{MedicineName: "Paracetamol", BatchNo: "PCM-2401", Expiry: "2027-01-31", Quantity: 200, UnitPrice: entities.MoneyFromMajor(2.50)},
	{MedicineName: "Paracetamol", BatchNo: "PCM-2312", Expiry: "2026-12-31", Quantity: 40, UnitPrice: entities.MoneyFromMajor(2.25)},
	{MedicineName: "Amoxicillin", BatchNo: "AMX-2402", Expiry: "2027-03-31", Quantity: 120, UnitPrice: entities.MoneyFromMajor(50), Strength: "250mg", Unit: "cap"},
	{MedicineName: "Cetirizine", BatchNo: "CTZ-2403", Expiry: "2027-06-30", Quantity: 15, UnitPrice: entities.MoneyFromMajor(30), Strength: "10mg"},
	{MedicineName: "ORS", BatchNo: "ORS-2404", Expiry: "2026-11-30", Quantity: 60, UnitPrice: entities.MoneyFromMajor(20), Strength: "21g", Unit: "sachet"},
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo staff, beds and stock into the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")
			return runSeed(reset || os.Getenv("RESET_DB") == "true")
		},
	}
	cmd.Flags().Bool("reset", false, "truncate every ledger table before seeding")
	return cmd
}

func runSeed(reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	if reset {
		log.Warn().Msg("reset requested, truncating ledger tables before seeding")
		if err := store.reset(ctx); err != nil {
			return fmt.Errorf("failed to reset tables: %w", err)
		}
	}

	return seedDemo(ctx, store, services.SystemClock(cfg.Clinic.Location))
}

// seedDemo is idempotent for profiles and beds; stock batches are added on
// every run.
func seedDemo(ctx context.Context, store *ledger, clock services.Clock) error {
	for i := range demoProfiles {
		if err := store.profileWriter.Put(ctx, &demoProfiles[i]); err != nil {
			return fmt.Errorf("failed to seed profile %s: %w", demoProfiles[i].ID, err)
		}
	}

	beds := services.NewBedService(store.tx, store.beds, store.patients, nil, clock, nil)
	for _, b := range demoBeds {
		if _, err := beds.AddBed(ctx, b.number, b.ward); err != nil && !apperrors.IsConflict(err) {
			return fmt.Errorf("failed to seed bed %s: %w", b.number, err)
		}
	}

	inventory := services.NewInventoryService(store.tx, store.inventory, store.prescriptions, store.dispenses, nil, clock, 0, nil)
	for _, req := range demoStock {
		if _, err := inventory.AddStock(ctx, req); err != nil {
			return fmt.Errorf("failed to seed %s batch %s: %w", req.MedicineName, req.BatchNo, err)
		}
	}

	log.Info().
		Int("profiles", len(demoProfiles)).
		Int("beds", len(demoBeds)).
		Int("batches", len(demoStock)).
		Msg("demo data seeded")
	return nil
}
