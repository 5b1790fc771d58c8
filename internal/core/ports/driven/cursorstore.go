package driven

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// SyncCursorStore persists reconciliation cursors per (tenant, source).
type SyncCursorStore interface {
	// Get retrieves the cursor for a tenant and source kind.
	// Returns domain.ErrNotFound if no cursor exists yet.
	Get(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) (*domain.SyncCursor, error)

	// Save stores or updates a cursor.
	Save(ctx context.Context, cursor *domain.SyncCursor) error

	// Delete removes a cursor.
	Delete(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) error
}
