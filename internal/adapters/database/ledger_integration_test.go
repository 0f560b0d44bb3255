//go:build integration

package database_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/zatekoja/clinicflow/internal/adapters/database"
	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/clinicflow/pkg/config"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

type LedgerIntegrationTestSuite struct {
	suite.Suite
	client *postgres.Client

	tokens        *services.TokenService
	prescriptions *services.PrescriptionService
	inventory     *services.InventoryService
	billing       *services.BillingService
	beds          *services.BedService
}

func (s *LedgerIntegrationTestSuite) SetupSuite() {
	cfg := &config.DatabaseConfig{
		Host:             getEnv("TEST_DB_HOST", "localhost"),
		Port:             getEnvAsInt("TEST_DB_PORT", 5432),
		User:             getEnv("TEST_DB_USER", "postgres"),
		Password:         getEnv("TEST_DB_PASSWORD", "postgres"),
		Database:         getEnv("TEST_DB_NAME", "clinicflow_test"),
		SSLMode:          getEnv("TEST_DB_SSLMODE", "disable"),
		MaxOpenConns:     20,
		MaxIdleConns:     5,
		StatementTimeout: 5 * time.Second,
	}

	client, err := postgres.NewClient(cfg)
	require.NoError(s.T(), err, "Failed to create postgres client")
	require.NoError(s.T(), client.Migrate(context.Background()))
	s.client = client

	clock := services.Clock{Location: time.UTC}
	patients := database.NewPatientAdapter(client)
	visits := database.NewVisitAdapter(client)
	prescriptions := database.NewPrescriptionAdapter(client)
	inventory := database.NewInventoryAdapter(client)
	dispenses := database.NewDispenseAdapter(client)

	s.tokens = services.NewTokenService(client, patients, visits, nil, clock, services.TokenConfig{DefaultRegion: "IN", MaxAttempts: 10}, nil)
	s.prescriptions = services.NewPrescriptionService(client, visits, prescriptions, nil, clock)
	s.inventory = services.NewInventoryService(client, inventory, prescriptions, dispenses, nil, clock, 20, nil)
	s.billing = services.NewBillingService(client, patients, dispenses, database.NewBillAdapter(client), nil, clock, nil)
	s.beds = services.NewBedService(client, database.NewBedAdapter(client), patients, nil, clock, nil)
}

func (s *LedgerIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *LedgerIntegrationTestSuite) SetupTest() {
	_, err := s.client.DB().Exec(`TRUNCATE payments, bill_items, pharmacy_dispense, bills, inventory, medicines,
		prescription_medicines, prescriptions, appointments, token_counters, admissions, beds, patients, profiles CASCADE`)
	s.Require().NoError(err)
}

func (s *LedgerIntegrationTestSuite) register(mobile string) *services.RegistrationResult {
	doctor := "doc-1"
	result, err := s.tokens.RegisterVisit(context.Background(), services.RegistrationRequest{
		Name:      "Patient " + mobile,
		Age:       40,
		Mobile:    mobile,
		DoctorID:  &doctor,
		VisitDate: "2026-03-02",
	})
	s.Require().NoError(err)
	return result
}

func (s *LedgerIntegrationTestSuite) TestConcurrentTokensAreDense() {
	ctx := context.Background()
	const callers = 25

	doctor := "doc-7"
	tokens := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := s.tokens.AssignToken(ctx, &doctor, "2026-03-02")
			s.NoError(err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, callers)
	for _, token := range tokens {
		s.False(seen[token], "token %d issued twice", token)
		seen[token] = true
	}
	for want := 1; want <= callers; want++ {
		s.True(seen[want], "token %d missing", want)
	}
}

func (s *LedgerIntegrationTestSuite) TestConcurrentDispenseNeverOversells() {
	ctx := context.Background()
	const stock, callers = 5, 12

	batch, err := s.inventory.AddStock(ctx, services.StockRequest{
		MedicineName: "Paracetamol", BatchNo: "P-1", Expiry: "2027-01-31", Quantity: stock, UnitPrice: 250,
	})
	s.Require().NoError(err)

	rxIDs := make([]string, callers)
	for i := range rxIDs {
		reg := s.register(fmt.Sprintf("98765432%02d", i))
		rxIDs[i], err = s.prescriptions.RecordPrescription(ctx, services.PrescriptionRequest{
			VisitID:   reg.Visit.ID,
			Diagnosis: "Fever",
			Lines:     []services.PrescriptionLineReq{{MedicineName: "paracetamol", Dosage: "1-0-1", Duration: "3 days"}},
		})
		s.Require().NoError(err)
	}

	var (
		mu        sync.Mutex
		dispensed int
		wg        sync.WaitGroup
	)
	for _, id := range rxIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			outcomes, err := s.inventory.Dispense(ctx, id)
			if !s.NoError(err) {
				return
			}
			if outcomes[0].Kind == entities.OutcomeDispensed {
				mu.Lock()
				dispensed++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	s.Equal(stock, dispensed)
	stored, err := s.inventory.ListInventory(ctx)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(batch.ID, stored[0].ID)
	s.Zero(stored[0].Quantity)
}

func (s *LedgerIntegrationTestSuite) TestConcurrentFinalizeBillsOnce() {
	ctx := context.Background()

	_, err := s.inventory.AddStock(ctx, services.StockRequest{
		MedicineName: "Amoxicillin", BatchNo: "A-1", Expiry: "2027-01-31", Quantity: 10, UnitPrice: 5000,
	})
	s.Require().NoError(err)

	reg := s.register("9876543210")
	rxID, err := s.prescriptions.RecordPrescription(ctx, services.PrescriptionRequest{
		VisitID:   reg.Visit.ID,
		Diagnosis: "Infection",
		Lines:     []services.PrescriptionLineReq{{MedicineName: "Amoxicillin"}},
	})
	s.Require().NoError(err)
	_, err = s.inventory.Dispense(ctx, rxID)
	s.Require().NoError(err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		billed   int
		rejected int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.billing.FinalizeBill(ctx, services.FinalizeRequest{PatientID: reg.Patient.ID, PaymentMode: entities.PaymentModeCash})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				billed++
			case apperrors.IsType(err, apperrors.ErrorTypeEmptyBill), apperrors.IsConflict(err):
				rejected++
			default:
				s.Fail("unexpected error", err.Error())
			}
		}()
	}
	wg.Wait()

	s.Equal(1, billed)
	s.Equal(3, rejected)
}

func (s *LedgerIntegrationTestSuite) TestConcurrentAdmitSingleWinner() {
	ctx := context.Background()
	bed, err := s.beds.AddBed(ctx, "B1", "General")
	s.Require().NoError(err)

	patients := []*services.RegistrationResult{s.register("9876543210"), s.register("9876543211"), s.register("9876543212")}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for _, p := range patients {
		wg.Add(1)
		go func(patientID string) {
			defer wg.Done()
			_, err := s.beds.Admit(ctx, bed.ID, patientID)
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
				return
			}
			s.True(apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition), "got %v", err)
		}(p.Patient.ID)
	}
	wg.Wait()

	s.Equal(1, winners)
}

func TestLedgerIntegrationTestSuite(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}
	suite.Run(t, new(LedgerIntegrationTestSuite))
}
