package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
	"github.com/answergrid/answergrid/internal/logger"
)

// Ensure TenantResolver implements the interface.
var _ driving.TenantResolver = (*TenantResolver)(nil)

// TenantResolver maps client identifiers to canonical tenant ids using an
// injected routing-table snapshot. The table is swapped whole on
// configuration changes; a lookup never sees a half-updated mapping.
//
// Unknown aliases fail with domain.ErrUnknownTenant. In demo mode they
// fall back to the table's default tenant instead, with a warning on
// every fallback - a convenience for local setups that misroutes typos,
// so it is never the default.
type TenantResolver struct {
	mu       sync.RWMutex
	table    *domain.RoutingTable
	demoMode bool
}

// NewTenantResolver creates a resolver over an initial routing table.
func NewTenantResolver(table *domain.RoutingTable, demoMode bool) *TenantResolver {
	if demoMode {
		logger.Warn("tenant resolver running in demo mode: unknown aliases fall back to tenant %q", table.DefaultTenant)
	}
	return &TenantResolver{table: table, demoMode: demoMode}
}

// Resolve returns the canonical tenant id for an identifier. Identifiers
// already in canonical form pass through without a lookup.
func (r *TenantResolver) Resolve(identifier string) (domain.TenantID, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", fmt.Errorf("empty tenant identifier: %w", domain.ErrInvalidInput)
	}

	if domain.IsCanonical(identifier) {
		return domain.TenantID(identifier), nil
	}

	table := r.snapshot()
	if id, ok := table.Lookup(identifier); ok {
		return id, nil
	}

	if r.demoMode && table.DefaultTenant != "" {
		logger.Warn("alias %q not registered, demo mode routing to default tenant %q", identifier, table.DefaultTenant)
		return table.DefaultTenant, nil
	}

	return "", fmt.Errorf("alias %q: %w", identifier, domain.ErrUnknownTenant)
}

// Swap installs a new routing table if its version is newer than the
// current one. Returns true if the table was installed.
func (r *TenantResolver) Swap(table *domain.RoutingTable) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if table == nil || table.Version <= r.table.Version {
		return false
	}
	r.table = table
	logger.Info("routing table updated to version %d (%d aliases)", table.Version, len(table.Aliases))
	return true
}

// TableVersion returns the version of the installed routing table.
func (r *TenantResolver) TableVersion() int64 {
	return r.snapshot().Version
}

func (r *TenantResolver) snapshot() *domain.RoutingTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table
}
