package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
)

// cursorStore implements driven.SyncCursorStore.
type cursorStore struct {
	store *Store
}

var _ driven.SyncCursorStore = (*cursorStore)(nil)

// Get retrieves the cursor for a tenant and source kind.
func (s *cursorStore) Get(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) (*domain.SyncCursor, error) {
	var versionsJSON, failuresJSON string
	var lastFullSync sql.NullTime

	err := s.store.db.QueryRowContext(ctx, `
		SELECT item_versions, failure_counts, last_full_sync
		FROM sync_cursors WHERE tenant_id = ? AND source_kind = ?
	`, string(tenant), string(kind)).Scan(&versionsJSON, &failuresJSON, &lastFullSync)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying cursor: %w", err)
	}

	cursor := domain.NewSyncCursor(tenant, kind)
	if err := json.Unmarshal([]byte(versionsJSON), &cursor.ItemVersions); err != nil {
		return nil, fmt.Errorf("unmarshaling item versions: %w", err)
	}
	if err := json.Unmarshal([]byte(failuresJSON), &cursor.FailureCounts); err != nil {
		return nil, fmt.Errorf("unmarshaling failure counts: %w", err)
	}
	if lastFullSync.Valid {
		cursor.LastFullSync = lastFullSync.Time
	}
	return cursor, nil
}

// Save stores or updates a cursor.
func (s *cursorStore) Save(ctx context.Context, cursor *domain.SyncCursor) error {
	if cursor == nil || cursor.TenantID == "" || cursor.SourceKind == "" {
		return domain.ErrInvalidInput
	}

	versionsJSON, err := json.Marshal(nonNilVersions(cursor.ItemVersions))
	if err != nil {
		return fmt.Errorf("marshalling item versions: %w", err)
	}
	failuresJSON, err := json.Marshal(nonNilFailures(cursor.FailureCounts))
	if err != nil {
		return fmt.Errorf("marshalling failure counts: %w", err)
	}

	var lastFullSync any
	if !cursor.LastFullSync.IsZero() {
		lastFullSync = cursor.LastFullSync.UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (tenant_id, source_kind, item_versions, failure_counts, last_full_sync)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, source_kind) DO UPDATE SET
			item_versions = excluded.item_versions,
			failure_counts = excluded.failure_counts,
			last_full_sync = excluded.last_full_sync
	`, string(cursor.TenantID), string(cursor.SourceKind),
		string(versionsJSON), string(failuresJSON), lastFullSync)
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}

// Delete removes a cursor. Deleting a missing cursor is a no-op.
func (s *cursorStore) Delete(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_cursors WHERE tenant_id = ? AND source_kind = ?",
		string(tenant), string(kind))
	if err != nil {
		return fmt.Errorf("deleting cursor: %w", err)
	}
	return nil
}

func nonNilVersions(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilFailures(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
