package driving

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// Answerer produces grounded answers for tenant queries.
type Answerer interface {
	// Answer resolves the tenant identifier, retrieves grounding
	// passages and invokes the generation service. Zero passages still
	// produce an answer, flagged ungrounded.
	Answer(ctx context.Context, tenantIdentifier, query string) (*domain.Answer, error)
}

// TenantResolver maps human-facing identifiers to canonical tenant ids.
type TenantResolver interface {
	// Resolve returns the canonical id for an identifier. Canonical ids
	// pass through without lookup; aliases are looked up in the routing
	// table. Unknown identifiers fail with domain.ErrUnknownTenant
	// unless demo mode routes them to the default tenant.
	Resolve(identifier string) (domain.TenantID, error)
}
