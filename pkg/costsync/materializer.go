package costsync

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"costsync/pkg/ghe"
	"costsync/pkg/namecache"
)

// DefaultCacheTTL is how long cached name to ID resolutions stay fresh
const DefaultCacheTTL = 24 * time.Hour

// Materializer turns cost center names into IDs. It consults the cache
// first, then the remote listing, and only creates missing cost centers
// during apply runs.
type Materializer struct {
	api        ghe.APIClient
	cache      namecache.Store
	ttl        time.Duration
	autoCreate bool
	logger     *slog.Logger
}

// NewMaterializer creates a materializer. A zero ttl falls back to
// DefaultCacheTTL.
func NewMaterializer(api ghe.APIClient, cache namecache.Store, ttl time.Duration, autoCreate bool, logger *slog.Logger) *Materializer {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Materializer{
		api:        api,
		cache:      cache,
		ttl:        ttl,
		autoCreate: autoCreate,
		logger:     logger,
	}
}

// MaterializeResult maps resolved names to IDs and classifies the rest
type MaterializeResult struct {
	// IDs maps cost center name to ID for every resolved name
	IDs map[string]string
	// WouldCreate lists names that an apply run would create
	WouldCreate []string
	// Unresolved lists names that could not be resolved and whose
	// assignments are dropped
	Unresolved []string
}

// Materialize resolves the given cost center names. Mutations (cost
// center creation) only happen when apply is true and auto-create is
// enabled; plan runs report such names as WouldCreate instead.
func (m *Materializer) Materialize(ctx context.Context, names []string, apply bool) (*MaterializeResult, error) {
	result := &MaterializeResult{IDs: make(map[string]string)}

	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	var misses []string
	for _, name := range sorted {
		entry, ok, err := m.cache.Get(name)
		if err != nil {
			m.logger.Warn("cache read failed", "cost_center", name, "error", err)
			misses = append(misses, name)
			continue
		}
		if ok && entry.Fresh(m.ttl) {
			result.IDs[name] = entry.ID
			continue
		}
		misses = append(misses, name)
	}

	if len(misses) == 0 {
		return result, nil
	}

	m.logger.Info("resolving cost centers remotely", "count", len(misses))

	remote, err := m.api.ListCostCenters(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(remote))
	for _, cc := range remote {
		byName[cc.Name] = cc.ID
	}

	for _, name := range misses {
		if id, ok := byName[name]; ok {
			result.IDs[name] = id
			if err := m.cache.Put(name, id); err != nil {
				m.logger.Warn("cache write failed", "cost_center", name, "error", err)
			}
			continue
		}

		if !m.autoCreate {
			m.logger.Warn("cost center does not exist and auto-create is disabled, dropping its assignments",
				"cost_center", name)
			result.Unresolved = append(result.Unresolved, name)
			continue
		}

		if !apply {
			result.WouldCreate = append(result.WouldCreate, name)
			continue
		}

		created, err := m.api.CreateCostCenter(ctx, name)
		if err != nil {
			if ghe.IsAuthError(err) {
				return nil, err
			}
			m.logger.Warn("cost center creation failed, dropping its assignments",
				"cost_center", name, "error", err)
			result.Unresolved = append(result.Unresolved, name)
			continue
		}

		m.logger.Info("created cost center", "cost_center", name, "id", created.ID)
		result.IDs[name] = created.ID
		if err := m.cache.Put(name, created.ID); err != nil {
			m.logger.Warn("cache write failed", "cost_center", name, "error", err)
		}
	}

	return result, nil
}
