package driving

import "context"

// Scheduler drives periodic reconciliation passes for all tenants and
// connectors.
type Scheduler interface {
	// Start begins the scheduler loop. Blocks until the context is
	// cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop shuts the scheduler down, waiting for in-flight passes.
	Stop() error
}
