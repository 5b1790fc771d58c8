// Package driving provides interfaces for inbound use cases (primary ports).
package driving

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// SyncStatus reports the progress of a running reconciliation pass.
type SyncStatus struct {
	// Tenant and SourceKind identify the reconciliation unit.
	Tenant     domain.TenantID
	SourceKind domain.SourceKind

	// Running is true while a pass is in progress.
	Running bool

	// ItemsProcessed counts items handled so far.
	ItemsProcessed int

	// ErrorCount counts items that failed in this pass.
	ErrorCount int
}

// SyncReport summarises a completed full reconciliation pass.
type SyncReport struct {
	// ItemsProcessed counts items that were fetched and diffed.
	ItemsProcessed int

	// ItemsIngested counts items that actually changed and were written.
	ItemsIngested int

	// ItemsDeleted counts documents removed by deletion reconciliation.
	ItemsDeleted int

	// Failures counts items whose ingest failed. Sibling items are
	// unaffected; each failure is independent.
	Failures int
}

// SyncOrchestrator reconciles external source state into the document
// store. It is the sole mutator of document content for a given
// (tenant, source kind, source-native id) unit.
type SyncOrchestrator interface {
	// HandleWebhook reconciles the single item a verified webhook event
	// refers to. Duplicate triggers for an item already in flight are
	// coalesced, not queued.
	HandleWebhook(ctx context.Context, event domain.WebhookEvent) (domain.ReconcileOutcome, error)

	// ReconcileItem runs the fetch/diff/ingest state machine for one
	// source item.
	ReconcileItem(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind, sourceNativeID string) (domain.ReconcileOutcome, error)

	// ReconcileSource runs a full pass over one tenant's source: every
	// listed item is diffed and ingested as needed, previously known
	// items missing from the listing are deleted, and failed items from
	// earlier passes are retried.
	ReconcileSource(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) (*SyncReport, error)

	// IngestManual ingests operator-provided content directly, bypassing
	// the fetch step. Used by the manual-upload path.
	IngestManual(ctx context.Context, tenant domain.TenantID, sourceNativeID, title, content string) error

	// Status returns the current status of a reconciliation unit.
	Status(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) (*SyncStatus, error)
}
