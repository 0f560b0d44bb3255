package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
	"github.com/zatekoja/clinicflow/internal/domain/repositories"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
)

// CachedProfileAdapter wraps a ProfileRepository with cache-aside reads
type CachedProfileAdapter struct {
	adapter    repositories.ProfileRepository
	cache      providers.CacheProvider
	ttlSeconds int
	metrics    *observability.Metrics
}

var _ repositories.ProfileRepository = (*CachedProfileAdapter)(nil)

// NewCachedProfileAdapter creates a new cached profile adapter
func NewCachedProfileAdapter(adapter repositories.ProfileRepository, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) *CachedProfileAdapter {
	return &CachedProfileAdapter{
		adapter:    adapter,
		cache:      cache,
		ttlSeconds: ttlSeconds,
		metrics:    metrics,
	}
}

func profileCacheKey(id string) string {
	return fmt.Sprintf("profile:%s", id)
}

func profilesByRoleCacheKey(role string) string {
	return fmt.Sprintf("profiles:role:%s", role)
}

// GetByID retrieves a profile by ID with caching
func (a *CachedProfileAdapter) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	cacheKey := profileCacheKey(id)

	var profile entities.Profile
	if a.fromCache(ctx, cacheKey, &profile) {
		return &profile, nil
	}

	fetched, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.storeAsync(cacheKey, fetched)
	return fetched, nil
}

// ListByRole lists profiles carrying the role tag with caching
func (a *CachedProfileAdapter) ListByRole(ctx context.Context, role string) ([]*entities.Profile, error) {
	cacheKey := profilesByRoleCacheKey(role)

	var profiles []*entities.Profile
	if a.fromCache(ctx, cacheKey, &profiles) {
		return profiles, nil
	}

	fetched, err := a.adapter.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}

	a.storeAsync(cacheKey, fetched)
	return fetched, nil
}

func (a *CachedProfileAdapter) fromCache(ctx context.Context, key string, dst interface{}) bool {
	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		observability.RecordCacheMiss(ctx, a.metrics, key)
		return false
	}
	if err := json.Unmarshal(cached, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached profile data")
		observability.RecordCacheMiss(ctx, a.metrics, key)
		return false
	}
	observability.RecordCacheHit(ctx, a.metrics, key)
	return true
}

// storeAsync updates the cache off the request path
func (a *CachedProfileAdapter) storeAsync(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to marshal profile data for cache")
		return
	}

	go func() {
		if err := a.cache.Set(context.Background(), key, data, a.ttlSeconds); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to cache profile data")
		}
	}()
}
