package driving

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// Retriever ranks a tenant's chunks by relevance to a query. An empty
// result is a valid outcome, not an error.
type Retriever interface {
	// Search embeds the query with the tenant's embedding model, scores
	// every chunk of the tenant by cosine similarity, and returns up to
	// opts.Limit chunks scoring at or above opts.Threshold, ordered by
	// score descending with ties broken by document recency then ordinal.
	Search(ctx context.Context, tenant domain.TenantID, query string, opts domain.RetrievalOptions) ([]domain.RankedChunk, error)
}
