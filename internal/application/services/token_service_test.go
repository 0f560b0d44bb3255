package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicflow/internal/application/services"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

func TestTokenService_AssignToken_ConcurrentCallersGetDenseUniqueTokens(t *testing.T) {
	f := newFixture(t)
	const callers = 40

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens []int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := f.tokens.AssignToken(context.Background(), strPtr("doc-1"), testDay)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			tokens = append(tokens, token)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(tokens)
	require.Len(t, tokens, callers)
	for i, token := range tokens {
		assert.Equal(t, i+1, token)
	}
}

func TestTokenService_AssignToken_PartitionsByDoctorAndDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assign := func(doctor *string, day string) int {
		token, err := f.tokens.AssignToken(ctx, doctor, day)
		require.NoError(t, err)
		return token
	}

	assert.Equal(t, 1, assign(strPtr("doc-1"), testDay))
	assert.Equal(t, 2, assign(strPtr("doc-1"), testDay))
	assert.Equal(t, 1, assign(strPtr("doc-2"), testDay))
	assert.Equal(t, 1, assign(nil, testDay))
	assert.Equal(t, 2, assign(nil, testDay))
	assert.Equal(t, 1, assign(strPtr("doc-1"), "2026-03-03"))

	// blank date resolves to the clinic's today
	assert.Equal(t, 3, assign(strPtr("doc-1"), ""))
}

func TestTokenService_AssignToken_RejectsMalformedDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.tokens.AssignToken(context.Background(), nil, "02/03/2026")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestTokenService_AssignToken_RetriesContention(t *testing.T) {
	f := newFixture(t)

	failures := 2
	f.store.SetFault(func(op string) error {
		if op == "token_counters.reserve" && failures > 0 {
			failures--
			return apperrors.NewConflictError("concurrent update")
		}
		return nil
	})

	token, err := f.tokens.AssignToken(context.Background(), strPtr("doc-1"), testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, token)
	assert.Equal(t, 0, failures)
}

func TestTokenService_AssignToken_GivesUpAsConflict(t *testing.T) {
	f := newFixture(t)
	f.store.SetFault(func(op string) error {
		if op == "token_counters.reserve" {
			return apperrors.NewConflictError("concurrent update")
		}
		return nil
	})

	_, err := f.tokens.AssignToken(context.Background(), strPtr("doc-1"), testDay)
	assert.True(t, apperrors.IsConflict(err))
}

func TestTokenService_RegisterVisit_ThirdPatientGetsTokenThree(t *testing.T) {
	f := newFixture(t)
	doctor := strPtr("doc-1")

	f.register(t, "Asha", "98765 43210", doctor)
	f.register(t, "Ravi", "98765 43211", doctor)
	third := f.register(t, "Meena", "98765 43212", doctor)

	assert.Equal(t, 3, third.Visit.TokenNumber)
	assert.Equal(t, entities.VisitStatusWaiting, third.Visit.Status)
	assert.Equal(t, testDay, third.Visit.VisitDate)

	queue, err := f.tokens.ListQueue(context.Background(), doctor, testDay)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	for i, entry := range queue {
		assert.Equal(t, i+1, entry.Visit.TokenNumber)
	}
	assert.Equal(t, "Meena", queue[2].Patient.Name)
}

func TestTokenService_RegisterVisit_ReusesPatientByMobile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.register(t, "Asha", "98765 43210", nil)
	assert.True(t, first.NewPatient)
	assert.Equal(t, "+919876543210", first.Patient.Mobile)

	second, err := f.tokens.RegisterVisit(ctx, services.RegistrationRequest{
		Age:       31,
		Mobile:    "+91-98765-43210",
		Symptoms:  "cough",
		VisitDate: testDay,
	})
	require.NoError(t, err)
	assert.False(t, second.NewPatient)
	assert.Equal(t, first.Patient.ID, second.Patient.ID)
	assert.Equal(t, 2, second.Visit.TokenNumber)

	stored, err := f.tokens.FindPatientByMobile(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 31, stored.Age)
	assert.Equal(t, "cough", stored.Symptoms)
	assert.Equal(t, "Asha", stored.Name)

	assert.Len(t, f.bus.ofType(entities.EventVisitRegistered), 2)
}

func TestTokenService_RegisterVisit_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  services.RegistrationRequest
	}{
		{name: "bad mobile", req: services.RegistrationRequest{Name: "Asha", Mobile: "12"}},
		{name: "age out of range", req: services.RegistrationRequest{Name: "Asha", Mobile: "9876543210", Age: 151}},
		{name: "negative age", req: services.RegistrationRequest{Name: "Asha", Mobile: "9876543210", Age: -1}},
		{name: "new patient without name", req: services.RegistrationRequest{Mobile: "9876543210", Age: 20}},
		{name: "bad date", req: services.RegistrationRequest{Name: "Asha", Mobile: "9876543210", VisitDate: "2026-13-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.tokens.RegisterVisit(context.Background(), tt.req)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)
			assert.Empty(t, f.bus.ofType(entities.EventVisitRegistered))
		})
	}
}

func TestTokenService_RegisterVisit_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.SetFault(func(op string) error {
		if op == "appointments.create" {
			return apperrors.NewStoreUnavailableError("appointments.create", errors.New("connection reset"))
		}
		return nil
	})

	_, err := f.tokens.RegisterVisit(ctx, services.RegistrationRequest{Name: "Asha", Mobile: "9876543210", VisitDate: testDay})
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeStoreUnavailable))

	_, err = f.tokens.FindPatientByMobile(ctx, "9876543210")
	assert.True(t, apperrors.IsNotFound(err), "patient insert must roll back with the visit")
	assert.Empty(t, f.bus.ofType(entities.EventVisitRegistered))

	// the token reserved inside the failed transaction is not consumed
	f.store.SetFault(nil)
	token, err := f.tokens.AssignToken(ctx, nil, testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, token)
}

func TestTokenService_PublishFailureDoesNotFailRegistration(t *testing.T) {
	f := newFixture(t)
	f.bus.err = fmt.Errorf("redis down")

	result, err := f.tokens.RegisterVisit(context.Background(), services.RegistrationRequest{Name: "Asha", Mobile: "9876543210", VisitDate: testDay})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Visit.TokenNumber)
}
