package driven

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// SourceClient fetches content from an external source system. One client
// serves every connector config of its protocol; the config identifies
// the tenant-specific endpoint and credentials.
//
// Failure mapping: unreachable or throttled source systems surface as
// domain.ErrSourceUnavailable, missing items as domain.ErrSourceItemNotFound.
type SourceClient interface {
	// FetchItem pulls the current content of one source item.
	FetchItem(ctx context.Context, cfg domain.ConnectorConfig, sourceNativeID string) (*domain.SourceContent, error)

	// ListItems enumerates all items the source currently has, with
	// their versions. Used for change detection and deletion
	// reconciliation during full passes.
	ListItems(ctx context.Context, cfg domain.ConnectorConfig) ([]domain.SourceItem, error)
}
