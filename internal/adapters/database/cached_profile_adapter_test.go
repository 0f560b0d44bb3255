package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicflow/internal/adapters/cache"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Profile), args.Error(1)
}

func (m *MockProfileRepository) ListByRole(ctx context.Context, role string) ([]*entities.Profile, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Profile), args.Error(1)
}

func TestCachedProfileAdapter_ListByRole_CachesResult(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProfileRepository)
	store := cache.NewMemoryAdapter()
	adapter := NewCachedProfileAdapter(repo, store, 300, nil)

	doctors := []*entities.Profile{{ID: "u-1", FullName: "Dr. Arjun", Role: entities.RoleDoctor}}
	repo.On("ListByRole", mock.Anything, entities.RoleDoctor).Return(doctors, nil).Once()

	first, err := adapter.ListByRole(ctx, entities.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, doctors, first)

	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, profilesByRoleCacheKey(entities.RoleDoctor))
		return err == nil
	}, time.Second, 10*time.Millisecond)

	second, err := adapter.ListByRole(ctx, entities.RoleDoctor)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Dr. Arjun", second[0].FullName)

	repo.AssertExpectations(t)
}

func TestCachedProfileAdapter_GetByID_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProfileRepository)
	store := cache.NewMemoryAdapter()
	adapter := NewCachedProfileAdapter(repo, store, 300, nil)

	repo.On("GetByID", mock.Anything, "u-9").Return(nil, apperrors.NewNotFoundError("profile with id u-9 not found")).Twice()

	for i := 0; i < 2; i++ {
		_, err := adapter.GetByID(ctx, "u-9")
		assert.True(t, apperrors.IsNotFound(err))
	}
	repo.AssertExpectations(t)
}

func TestCachedProfileAdapter_IgnoresCorruptEntries(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProfileRepository)
	store := cache.NewMemoryAdapter()
	adapter := NewCachedProfileAdapter(repo, store, 300, nil)

	require.NoError(t, store.Set(ctx, profileCacheKey("u-1"), []byte("not json"), 0))
	repo.On("GetByID", mock.Anything, "u-1").Return(&entities.Profile{ID: "u-1", FullName: "Meena"}, nil).Once()

	profile, err := adapter.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Meena", profile.FullName)
	repo.AssertExpectations(t)
}
