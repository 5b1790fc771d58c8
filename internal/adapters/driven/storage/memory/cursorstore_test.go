package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answergrid/answergrid/internal/core/domain"
)

func TestSyncCursorStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewSyncCursorStore()

	cursor := domain.NewSyncCursor("tn_alpha", domain.SourceMeetingNotes)
	cursor.Advance("item-1", "v1")
	require.NoError(t, store.Save(ctx, cursor))

	got, err := store.Get(ctx, "tn_alpha", domain.SourceMeetingNotes)
	require.NoError(t, err)
	version, ok := got.SeenVersion("item-1")
	assert.True(t, ok)
	assert.Equal(t, "v1", version)
}

func TestSyncCursorStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewSyncCursorStore()

	_, err := store.Get(ctx, "tn_alpha", domain.SourceMeetingNotes)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncCursorStore_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	store := NewSyncCursorStore()

	cursor := domain.NewSyncCursor("tn_alpha", domain.SourceMeetingNotes)
	cursor.Advance("item-1", "v1")
	require.NoError(t, store.Save(ctx, cursor))

	// Mutating the saved cursor after Save must not leak into the store.
	cursor.Advance("item-2", "v1")

	got, err := store.Get(ctx, "tn_alpha", domain.SourceMeetingNotes)
	require.NoError(t, err)
	_, ok := got.SeenVersion("item-2")
	assert.False(t, ok)

	// Mutating a fetched cursor must not leak either.
	got.Advance("item-3", "v1")
	again, err := store.Get(ctx, "tn_alpha", domain.SourceMeetingNotes)
	require.NoError(t, err)
	_, ok = again.SeenVersion("item-3")
	assert.False(t, ok)
}

func TestSyncCursorStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewSyncCursorStore()

	require.NoError(t, store.Save(ctx, domain.NewSyncCursor("tn_alpha", domain.SourceMeetingNotes)))
	require.NoError(t, store.Delete(ctx, "tn_alpha", domain.SourceMeetingNotes))

	_, err := store.Get(ctx, "tn_alpha", domain.SourceMeetingNotes)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent cursor is a no-op.
	assert.NoError(t, store.Delete(ctx, "tn_alpha", domain.SourceChatExport))
}
