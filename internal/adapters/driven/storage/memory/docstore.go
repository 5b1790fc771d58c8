// Package memory provides in-memory store implementations, used by tests
// and by demo deployments that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// Upsert inserts or fully replaces a document. Identity within a tenant
// is (source kind, source-native id): an upsert carrying a new document
// id for an already-known source item replaces the old document, chunks
// included, so one reconciliation key never maps to two documents.
func (s *DocumentStore) Upsert(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.documents[doc.ID]; ok && existing.TenantID != doc.TenantID {
		return domain.ErrTenantMismatch
	}
	for id := range s.documents {
		existing := s.documents[id]
		if id != doc.ID &&
			existing.TenantID == doc.TenantID &&
			existing.SourceKind == doc.SourceKind &&
			existing.SourceNativeID == doc.SourceNativeID {
			delete(s.documents, id)
			delete(s.chunks, id)
		}
	}
	s.documents[doc.ID] = copyDocument(*doc)
	return nil
}

// ReplaceChunks swaps a document's chunk set under the write lock, so
// readers observe either the old set or the new one in full.
func (s *DocumentStore) ReplaceChunks(_ context.Context, tenant domain.TenantID, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.TenantID != tenant {
		return domain.ErrTenantMismatch
	}

	replacement := make([]domain.Chunk, len(chunks))
	for i := range chunks {
		replacement[i] = copyChunk(chunks[i])
	}
	sort.Slice(replacement, func(i, j int) bool {
		return replacement[i].Ordinal < replacement[j].Ordinal
	})
	s.chunks[documentID] = replacement
	return nil
}

// GetDocument retrieves a document by id.
func (s *DocumentStore) GetDocument(_ context.Context, tenant domain.TenantID, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if doc.TenantID != tenant {
		return nil, domain.ErrTenantMismatch
	}
	copied := copyDocument(doc)
	return &copied, nil
}

// GetBySource returns the tenant's documents for one source kind.
func (s *DocumentStore) GetBySource(_ context.Context, tenant domain.TenantID, kind domain.SourceKind) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if doc.TenantID == tenant && doc.SourceKind == kind {
			result = append(result, copyDocument(doc))
		}
	}
	return result, nil
}

// GetAll returns all of the tenant's documents.
func (s *DocumentStore) GetAll(_ context.Context, tenant domain.TenantID) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if doc.TenantID == tenant {
			result = append(result, copyDocument(doc))
		}
	}
	return result, nil
}

// GetChunks returns a document's chunks ordered by ordinal.
func (s *DocumentStore) GetChunks(_ context.Context, tenant domain.TenantID, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if doc.TenantID != tenant {
		return nil, domain.ErrTenantMismatch
	}

	chunks := s.chunks[documentID]
	result := make([]domain.Chunk, len(chunks))
	for i := range chunks {
		result[i] = copyChunk(chunks[i])
	}
	return result, nil
}

// ListChunks returns every chunk belonging to the tenant.
func (s *DocumentStore) ListChunks(_ context.Context, tenant domain.TenantID) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Chunk
	for docID, chunks := range s.chunks {
		doc, ok := s.documents[docID]
		if !ok || doc.TenantID != tenant {
			continue
		}
		for i := range chunks {
			result = append(result, copyChunk(chunks[i]))
		}
	}
	return result, nil
}

// Delete removes a document and its chunks.
func (s *DocumentStore) Delete(_ context.Context, tenant domain.TenantID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.TenantID != tenant {
		return domain.ErrTenantMismatch
	}

	delete(s.documents, documentID)
	delete(s.chunks, documentID)
	return nil
}

// copyDocument deep-copies a document so callers and the store never
// share metadata maps.
func copyDocument(d domain.Document) domain.Document {
	if d.Metadata != nil {
		metadata := make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			metadata[k] = v
		}
		d.Metadata = metadata
	}
	return d
}

// copyChunk deep-copies a chunk, embedding vector included.
func copyChunk(c domain.Chunk) domain.Chunk {
	if c.Embedding != nil {
		embedding := make([]float32, len(c.Embedding))
		copy(embedding, c.Embedding)
		c.Embedding = embedding
	}
	if c.Metadata != nil {
		metadata := make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			metadata[k] = v
		}
		c.Metadata = metadata
	}
	return c
}
