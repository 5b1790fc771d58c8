package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
)

// Ensure Directory implements the interface.
var _ driven.TenantDirectory = (*Directory)(nil)

// Directory is the config-backed tenant directory. Tenants are
// provisioned by editing the config file; Reload installs a new tenant
// set atomically when the file changes.
type Directory struct {
	mu      sync.RWMutex
	byID    map[domain.TenantID]domain.Tenant
	ordered []domain.Tenant
}

// NewDirectory builds a directory from the loaded configuration.
func NewDirectory(cfg *Config) *Directory {
	d := &Directory{}
	d.Reload(cfg)
	return d
}

// Get retrieves a tenant by canonical id.
func (d *Directory) Get(_ context.Context, id domain.TenantID) (*domain.Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tenant, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("tenant %q: %w", id, domain.ErrUnknownTenant)
	}
	return &tenant, nil
}

// List returns all registered tenants in declaration order.
func (d *Directory) List(_ context.Context) ([]domain.Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.Tenant, len(d.ordered))
	copy(out, d.ordered)
	return out, nil
}

// Reload replaces the tenant set from a freshly loaded configuration.
func (d *Directory) Reload(cfg *Config) {
	tenants := cfg.BuildTenants()
	byID := make(map[domain.TenantID]domain.Tenant, len(tenants))
	for _, t := range tenants {
		byID[t.ID] = t
	}

	d.mu.Lock()
	d.byID = byID
	d.ordered = tenants
	d.mu.Unlock()
}
