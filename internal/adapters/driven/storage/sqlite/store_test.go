package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testDocument(tenant domain.TenantID, nativeID string) *domain.Document {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Document{
		ID:             uuid.New().String(),
		TenantID:       tenant,
		Title:          "Doc " + nativeID,
		Content:        "content of " + nativeID,
		SourceKind:     domain.SourceMeetingNotes,
		SourceNativeID: nativeID,
		Metadata:       map[string]any{"author": "pat"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func testChunks(doc *domain.Document, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			TenantID:   doc.TenantID,
			Ordinal:    i,
			Content:    "chunk text",
			Embedding:  []float32{float32(i), 0.5, -1.25},
			TokenCount: 2,
			Metadata:   map[string]any{"document_title": doc.Title},
		})
	}
	return chunks
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(tempDir, "knowledge.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "deep", "nested", "data")

	store, err := NewStore(nested)
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-apply migrations.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store := setupTestStore(t)

	var enabled int
	err := store.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	assert.Equal(t, 1, enabled)
}

// ==================== DocumentStore Tests ====================

func TestDocumentStore_UpsertAndGet(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("tn_acme", "page-1")
	require.NoError(t, docs.Upsert(ctx, doc))

	got, err := docs.GetDocument(ctx, "tn_acme", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, domain.SourceMeetingNotes, got.SourceKind)
	assert.Equal(t, "page-1", got.SourceNativeID)
	assert.Equal(t, "pat", got.Metadata["author"])
	assert.WithinDuration(t, doc.CreatedAt, got.CreatedAt, time.Second)
}

func TestDocumentStore_UpsertUpdatesInPlace(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("tn_acme", "page-1")
	require.NoError(t, docs.Upsert(ctx, doc))

	doc.Title = "Renamed"
	doc.Content = "new content"
	doc.UpdatedAt = doc.UpdatedAt.Add(time.Minute)
	require.NoError(t, docs.Upsert(ctx, doc))

	got, err := docs.GetDocument(ctx, "tn_acme", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "new content", got.Content)

	all, err := docs.GetAll(ctx, "tn_acme")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDocumentStore_UpsertSameSourceKeyDisplacesDocument(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	old := testDocument("tn_acme", "page-1")
	require.NoError(t, docs.Upsert(ctx, old))
	require.NoError(t, docs.ReplaceChunks(ctx, "tn_acme", old.ID, testChunks(old, 2)))

	// A fresh document id for the same (kind, native id) wins; the old
	// row and its chunks go with it.
	replacement := testDocument("tn_acme", "page-1")
	require.NoError(t, docs.Upsert(ctx, replacement))

	bySource, err := docs.GetBySource(ctx, "tn_acme", domain.SourceMeetingNotes)
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, replacement.ID, bySource[0].ID)

	_, err = docs.GetDocument(ctx, "tn_acme", old.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := docs.ListChunks(ctx, "tn_acme")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// The same native id under another tenant keeps its own document.
	other := testDocument("tn_globex", "page-1")
	require.NoError(t, docs.Upsert(ctx, other))
	require.NoError(t, docs.Upsert(ctx, testDocument("tn_acme", "page-1")))

	got, err := docs.GetDocument(ctx, "tn_globex", other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.DocumentStore().GetDocument(context.Background(), "tn_acme", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_TenantIsolation(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("tn_acme", "page-1")
	require.NoError(t, docs.Upsert(ctx, doc))
	require.NoError(t, docs.ReplaceChunks(ctx, "tn_acme", doc.ID, testChunks(doc, 2)))

	_, err := docs.GetDocument(ctx, "tn_globex", doc.ID)
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	_, err = docs.GetChunks(ctx, "tn_globex", doc.ID)
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	err = docs.Delete(ctx, "tn_globex", doc.ID)
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	// Reusing a document id under another tenant is rejected.
	stolen := testDocument("tn_globex", "page-1")
	stolen.ID = doc.ID
	err = docs.Upsert(ctx, stolen)
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	// Listings never leak across tenants.
	all, err := docs.GetAll(ctx, "tn_globex")
	require.NoError(t, err)
	assert.Empty(t, all)

	chunks, err := docs.ListChunks(ctx, "tn_globex")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentStore_GetBySource(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	httpDoc := testDocument("tn_acme", "page-1")
	require.NoError(t, docs.Upsert(ctx, httpDoc))

	manual := testDocument("tn_acme", "upload-1")
	manual.SourceKind = domain.SourceManualUpload
	require.NoError(t, docs.Upsert(ctx, manual))

	got, err := docs.GetBySource(ctx, "tn_acme", domain.SourceMeetingNotes)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, httpDoc.ID, got[0].ID)
}

func TestDocumentStore_ReplaceChunks(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("tn_acme", "page-1")
	require.NoError(t, docs.Upsert(ctx, doc))
	require.NoError(t, docs.ReplaceChunks(ctx, "tn_acme", doc.ID, testChunks(doc, 3)))

	replacement := testChunks(doc, 2)
	replacement[0].Content = "fresh text"
	require.NoError(t, docs.ReplaceChunks(ctx, "tn_acme", doc.ID, replacement))

	got, err := docs.GetChunks(ctx, "tn_acme", doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fresh text", got[0].Content)
	assert.Equal(t, 0, got[0].Ordinal)
	assert.Equal(t, 1, got[1].Ordinal)
	assert.Equal(t, []float32{0, 0.5, -1.25}, got[0].Embedding)
	assert.Equal(t, doc.Title, got[0].Metadata["document_title"])
}

func TestDocumentStore_ReplaceChunks_UnknownDocument(t *testing.T) {
	store := setupTestStore(t)

	err := store.DocumentStore().ReplaceChunks(context.Background(), "tn_acme", "missing", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteCascadesToChunks(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("tn_acme", "page-1")
	require.NoError(t, docs.Upsert(ctx, doc))
	require.NoError(t, docs.ReplaceChunks(ctx, "tn_acme", doc.ID, testChunks(doc, 3)))

	require.NoError(t, docs.Delete(ctx, "tn_acme", doc.ID))

	_, err := docs.GetDocument(ctx, "tn_acme", doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := docs.ListChunks(ctx, "tn_acme")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentStore_ListChunks(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	first := testDocument("tn_acme", "page-1")
	second := testDocument("tn_acme", "page-2")
	require.NoError(t, docs.Upsert(ctx, first))
	require.NoError(t, docs.Upsert(ctx, second))
	require.NoError(t, docs.ReplaceChunks(ctx, "tn_acme", first.ID, testChunks(first, 2)))
	require.NoError(t, docs.ReplaceChunks(ctx, "tn_acme", second.ID, testChunks(second, 1)))

	chunks, err := docs.ListChunks(ctx, "tn_acme")
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.Equal(t, domain.TenantID("tn_acme"), chunk.TenantID)
		assert.Len(t, chunk.Embedding, 3)
	}
}

// ==================== SyncCursorStore Tests ====================

func TestSyncCursorStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	cursors := store.SyncCursorStore()
	ctx := context.Background()

	cursor := domain.NewSyncCursor("tn_acme", domain.SourceMeetingNotes)
	cursor.Advance("page-1", "v3")
	cursor.RecordFailure("page-2")
	cursor.LastFullSync = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, cursors.Save(ctx, cursor))

	got, err := cursors.Get(ctx, "tn_acme", domain.SourceMeetingNotes)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"page-1": "v3"}, got.ItemVersions)
	assert.Equal(t, map[string]int{"page-2": 1}, got.FailureCounts)
	assert.WithinDuration(t, cursor.LastFullSync, got.LastFullSync, time.Second)
}

func TestSyncCursorStore_SaveUpdate(t *testing.T) {
	store := setupTestStore(t)
	cursors := store.SyncCursorStore()
	ctx := context.Background()

	cursor := domain.NewSyncCursor("tn_acme", domain.SourceMeetingNotes)
	cursor.Advance("page-1", "v1")
	require.NoError(t, cursors.Save(ctx, cursor))

	cursor.Advance("page-1", "v2")
	cursor.Advance("page-2", "v1")
	require.NoError(t, cursors.Save(ctx, cursor))

	got, err := cursors.Get(ctx, "tn_acme", domain.SourceMeetingNotes)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"page-1": "v2", "page-2": "v1"}, got.ItemVersions)
}

func TestSyncCursorStore_Get_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.SyncCursorStore().Get(context.Background(), "tn_acme", domain.SourceMeetingNotes)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncCursorStore_ScopedByTenantAndKind(t *testing.T) {
	store := setupTestStore(t)
	cursors := store.SyncCursorStore()
	ctx := context.Background()

	acme := domain.NewSyncCursor("tn_acme", domain.SourceMeetingNotes)
	acme.Advance("page-1", "v1")
	require.NoError(t, cursors.Save(ctx, acme))

	manual := domain.NewSyncCursor("tn_acme", domain.SourceManualUpload)
	manual.Advance("upload-1", "aaaa")
	require.NoError(t, cursors.Save(ctx, manual))

	_, err := cursors.Get(ctx, "tn_globex", domain.SourceMeetingNotes)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := cursors.Get(ctx, "tn_acme", domain.SourceManualUpload)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"upload-1": "aaaa"}, got.ItemVersions)
}

func TestSyncCursorStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	cursors := store.SyncCursorStore()
	ctx := context.Background()

	cursor := domain.NewSyncCursor("tn_acme", domain.SourceMeetingNotes)
	require.NoError(t, cursors.Save(ctx, cursor))
	require.NoError(t, cursors.Delete(ctx, "tn_acme", domain.SourceMeetingNotes))

	_, err := cursors.Get(ctx, "tn_acme", domain.SourceMeetingNotes)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, cursors.Delete(ctx, "tn_acme", domain.SourceMeetingNotes))
}

// ==================== Persistence Across Reopen ====================

func TestStore_PersistsAcrossReopen(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(tempDir)
	require.NoError(t, err)

	doc := testDocument("tn_acme", "page-1")
	require.NoError(t, store.DocumentStore().Upsert(ctx, doc))
	require.NoError(t, store.DocumentStore().ReplaceChunks(ctx, "tn_acme", doc.ID, testChunks(doc, 2)))
	require.NoError(t, store.Close())

	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.DocumentStore().GetDocument(ctx, "tn_acme", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)

	chunks, err := store.DocumentStore().GetChunks(ctx, "tn_acme", doc.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

// ==================== Embedding Encoding ====================

func TestFloat32SliceRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.125}
	assert.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
