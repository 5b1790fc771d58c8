package driven

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// Pipeline turns a document's content into an embedded chunk set. The
// operation is atomic: it returns either the complete chunk set or an
// error, never a partial set.
type Pipeline interface {
	// Process splits the document into chunks and attaches embeddings
	// computed with the tenant's embedding model.
	Process(ctx context.Context, doc *domain.Document, settings domain.TenantSettings) ([]domain.Chunk, error)
}
