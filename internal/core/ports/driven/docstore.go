// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// DocumentStore persists documents and chunks, scoped to one tenant per
// call. Implementations must reject any access where the stored entity's
// tenant differs from the requesting tenant (domain.ErrTenantMismatch).
type DocumentStore interface {
	// Upsert inserts or fully replaces the document identified by
	// (tenant, source kind, source-native id). Concurrent upserts for the
	// same key serialize; readers never observe a partial record.
	Upsert(ctx context.Context, doc *domain.Document) error

	// ReplaceChunks atomically swaps the document's chunk set for the
	// given one. Readers see either the old set or the new set in full,
	// never an empty intermediate state.
	ReplaceChunks(ctx context.Context, tenant domain.TenantID, documentID string, chunks []domain.Chunk) error

	// GetDocument retrieves a document by id.
	GetDocument(ctx context.Context, tenant domain.TenantID, id string) (*domain.Document, error)

	// GetBySource returns the tenant's documents for one source kind.
	GetBySource(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) ([]domain.Document, error)

	// GetAll returns all of the tenant's documents.
	GetAll(ctx context.Context, tenant domain.TenantID) ([]domain.Document, error)

	// GetChunks returns a document's chunks ordered by ordinal.
	GetChunks(ctx context.Context, tenant domain.TenantID, documentID string) ([]domain.Chunk, error)

	// ListChunks returns every chunk belonging to the tenant. This is the
	// retrieval engine's scan surface.
	ListChunks(ctx context.Context, tenant domain.TenantID) ([]domain.Chunk, error)

	// Delete removes a document and cascades to its chunks.
	Delete(ctx context.Context, tenant domain.TenantID, documentID string) error
}
