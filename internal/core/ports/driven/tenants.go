package driven

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// TenantDirectory looks up tenant records by canonical id. Backed by
// configuration; tenants are provisioned out of band and never deleted
// while referencing data exists.
type TenantDirectory interface {
	// Get retrieves a tenant. Returns domain.ErrUnknownTenant if the id
	// is not registered.
	Get(ctx context.Context, id domain.TenantID) (*domain.Tenant, error)

	// List returns all registered tenants.
	List(ctx context.Context) ([]domain.Tenant, error)
}
