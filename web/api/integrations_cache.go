package api

import (
	"context"
	"sync"
	"time"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// DefaultIntegrationsCacheTTL is the default time-to-live for the cached
// integration registry.
const DefaultIntegrationsCacheTTL = 5 * time.Minute

// IntegrationsCache is a thread-safe TTL cache over the cloud API's
// integration registry. The registry changes rarely, so the dashboard serves
// it from cache and tolerates staleness on upstream errors.
type IntegrationsCache struct {
	mu           sync.RWMutex
	integrations []models.Integration
	lastFetched  time.Time
	ttl          time.Duration
}

// NewIntegrationsCache creates a cache with the given TTL. A non-positive
// TTL falls back to DefaultIntegrationsCacheTTL.
func NewIntegrationsCache(ttl time.Duration) *IntegrationsCache {
	if ttl <= 0 {
		ttl = DefaultIntegrationsCacheTTL
	}
	return &IntegrationsCache{ttl: ttl}
}

// Get returns the cached registry, fetching from the cloud API when expired
// or not yet cached. On upstream failure a stale registry is returned rather
// than an error.
func (ic *IntegrationsCache) Get(ctx context.Context, client *Client) ([]models.Integration, error) {
	ic.mu.RLock()
	if ic.integrations != nil && time.Since(ic.lastFetched) < ic.ttl {
		integrations := ic.integrations
		ic.mu.RUnlock()
		return integrations, nil
	}
	ic.mu.RUnlock()

	ic.mu.Lock()
	defer ic.mu.Unlock()

	// Double-check after acquiring the write lock.
	if ic.integrations != nil && time.Since(ic.lastFetched) < ic.ttl {
		return ic.integrations, nil
	}

	integrations, err := client.ListIntegrations(ctx)
	if err != nil {
		if ic.integrations != nil {
			return ic.integrations, nil
		}
		return nil, err
	}

	ic.integrations = integrations
	ic.lastFetched = time.Now()
	return integrations, nil
}

// GetByType returns the cached registry narrowed to one integration type.
func (ic *IntegrationsCache) GetByType(ctx context.Context, client *Client, t string) ([]models.Integration, error) {
	all, err := ic.Get(ctx, client)
	if err != nil {
		return nil, err
	}
	var filtered []models.Integration
	for _, integration := range all {
		if integration.Type == t {
			filtered = append(filtered, integration)
		}
	}
	return filtered, nil
}

// Invalidate clears the cache, forcing a refresh on next access.
func (ic *IntegrationsCache) Invalidate() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.integrations = nil
	ic.lastFetched = time.Time{}
}
