package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Upsert inserts or fully replaces a document. Identity within a tenant
// is (source kind, source_native_id): an upsert carrying a new document
// id for an already-known source item displaces the old row, chunks
// cascading with it, so one reconciliation key never maps to two rows.
func (s *documentStore) Upsert(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now().UTC()
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var owner string
	err = tx.QueryRowContext(ctx,
		"SELECT tenant_id FROM documents WHERE id = ?", doc.ID).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// new document
	case err != nil:
		return fmt.Errorf("checking document ownership: %w", err)
	case owner != string(doc.TenantID):
		return domain.ErrTenantMismatch
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM documents
		WHERE tenant_id = ? AND source_kind = ? AND source_native_id = ? AND id != ?
	`, string(doc.TenantID), string(doc.SourceKind), doc.SourceNativeID, doc.ID); err != nil {
		return fmt.Errorf("displacing document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, tenant_id, title, content, source_kind, source_native_id, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, string(doc.TenantID), doc.Title, doc.Content,
		string(doc.SourceKind), doc.SourceNativeID, string(metadataJSON), createdAt, updatedAt); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

// ReplaceChunks swaps the document's chunk set inside one transaction.
func (s *documentStore) ReplaceChunks(ctx context.Context, tenant domain.TenantID, documentID string, chunks []domain.Chunk) error {
	if err := s.checkOwnership(ctx, tenant, documentID); err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, tenant_id, ordinal, content, embedding, token_count, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, documentID, string(tenant), chunk.Ordinal,
			chunk.Content, float32SliceToBytes(chunk.Embedding), chunk.TokenCount, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func (s *documentStore) GetDocument(ctx context.Context, tenant domain.TenantID, id string) (*domain.Document, error) {
	doc, err := s.getAnyTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenant {
		return nil, domain.ErrTenantMismatch
	}
	return doc, nil
}

// GetBySource returns the tenant's documents for one source kind.
func (s *documentStore) GetBySource(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, title, content, source_kind, source_native_id, metadata, created_at, updated_at
		FROM documents WHERE tenant_id = ? AND source_kind = ?
	`, string(tenant), string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// GetAll returns all of the tenant's documents.
func (s *documentStore) GetAll(ctx context.Context, tenant domain.TenantID) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, title, content, source_kind, source_native_id, metadata, created_at, updated_at
		FROM documents WHERE tenant_id = ?
	`, string(tenant))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// GetChunks returns a document's chunks ordered by ordinal.
func (s *documentStore) GetChunks(ctx context.Context, tenant domain.TenantID, documentID string) ([]domain.Chunk, error) {
	if err := s.checkOwnership(ctx, tenant, documentID); err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, tenant_id, ordinal, content, embedding, token_count, metadata
		FROM chunks WHERE document_id = ?
		ORDER BY ordinal
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ListChunks returns every chunk belonging to the tenant.
func (s *documentStore) ListChunks(ctx context.Context, tenant domain.TenantID) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, tenant_id, ordinal, content, embedding, token_count, metadata
		FROM chunks WHERE tenant_id = ?
		ORDER BY document_id, ordinal
	`, string(tenant))
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// Delete removes a document; the foreign key cascades to its chunks.
func (s *documentStore) Delete(ctx context.Context, tenant domain.TenantID, documentID string) error {
	if err := s.checkOwnership(ctx, tenant, documentID); err != nil {
		return err
	}

	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// checkOwnership verifies the document exists and belongs to the tenant.
func (s *documentStore) checkOwnership(ctx context.Context, tenant domain.TenantID, documentID string) error {
	var owner string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT tenant_id FROM documents WHERE id = ?", documentID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking document ownership: %w", err)
	}
	if owner != string(tenant) {
		return domain.ErrTenantMismatch
	}
	return nil
}

// getAnyTenant fetches a document without a tenant filter, so callers can
// distinguish not-found from cross-tenant access.
func (s *documentStore) getAnyTenant(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, title, content, source_kind, source_native_id, metadata, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocumentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

func scanDocumentRow(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var tenantID, sourceKind string
	var metadataJSON sql.NullString

	if err := row.Scan(&doc.ID, &tenantID, &doc.Title, &doc.Content,
		&sourceKind, &doc.SourceNativeID, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.TenantID = domain.TenantID(tenantID)
	doc.SourceKind = domain.SourceKind(sourceKind)
	if err := unmarshalMetadata(metadataJSON, &doc.Metadata); err != nil {
		return nil, err
	}
	return &doc, nil
}

func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var tenantID, sourceKind string
		var metadataJSON sql.NullString

		if err := rows.Scan(&doc.ID, &tenantID, &doc.Title, &doc.Content,
			&sourceKind, &doc.SourceNativeID, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		doc.TenantID = domain.TenantID(tenantID)
		doc.SourceKind = domain.SourceKind(sourceKind)
		if err := unmarshalMetadata(metadataJSON, &doc.Metadata); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var tenantID string
		var embeddingBlob []byte
		var metadataJSON sql.NullString

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &tenantID, &chunk.Ordinal,
			&chunk.Content, &embeddingBlob, &chunk.TokenCount, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		chunk.TenantID = domain.TenantID(tenantID)
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		if err := unmarshalMetadata(metadataJSON, &chunk.Metadata); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func unmarshalMetadata(raw sql.NullString, dst *map[string]any) error {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), dst); err != nil {
		return fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return nil
}
