package memory

import (
	"context"
	"sync"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
)

// Ensure SyncCursorStore implements the interface.
var _ driven.SyncCursorStore = (*SyncCursorStore)(nil)

// SyncCursorStore is an in-memory implementation of driven.SyncCursorStore.
type SyncCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]domain.SyncCursor
}

// NewSyncCursorStore creates a new in-memory cursor store.
func NewSyncCursorStore() *SyncCursorStore {
	return &SyncCursorStore{
		cursors: make(map[string]domain.SyncCursor),
	}
}

func cursorKey(tenant domain.TenantID, kind domain.SourceKind) string {
	return string(tenant) + "/" + string(kind)
}

// Get retrieves the cursor for a tenant and source kind.
func (s *SyncCursorStore) Get(_ context.Context, tenant domain.TenantID, kind domain.SourceKind) (*domain.SyncCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor, ok := s.cursors[cursorKey(tenant, kind)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyCursor(&cursor), nil
}

// Save stores or replaces a cursor.
func (s *SyncCursorStore) Save(_ context.Context, cursor *domain.SyncCursor) error {
	if cursor == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[cursorKey(cursor.TenantID, cursor.SourceKind)] = *copyCursor(cursor)
	return nil
}

// Delete removes a cursor. Deleting an absent cursor is a no-op.
func (s *SyncCursorStore) Delete(_ context.Context, tenant domain.TenantID, kind domain.SourceKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cursors, cursorKey(tenant, kind))
	return nil
}

// copyCursor deep-copies the cursor maps so callers never share state
// with the store.
func copyCursor(c *domain.SyncCursor) *domain.SyncCursor {
	out := *c
	out.ItemVersions = make(map[string]string, len(c.ItemVersions))
	for k, v := range c.ItemVersions {
		out.ItemVersions[k] = v
	}
	out.FailureCounts = make(map[string]int, len(c.FailureCounts))
	for k, v := range c.FailureCounts {
		out.FailureCounts[k] = v
	}
	return &out
}
