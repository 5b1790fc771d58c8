package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answergrid/answergrid/internal/adapters/driven/storage/memory"
	"github.com/answergrid/answergrid/internal/core/domain"
)

const retrievalTestTenant = domain.TenantID("tn_retrieval")

// seedChunkedDoc inserts a document with pre-embedded chunks.
func seedChunkedDoc(t *testing.T, store *memory.DocumentStore, tenant domain.TenantID, docID string, updatedAt time.Time, embeddings ...[]float32) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.Document{
		ID:             docID,
		TenantID:       tenant,
		Title:          "Title of " + docID,
		SourceKind:     domain.SourceMeetingNotes,
		SourceNativeID: "native-" + docID,
		UpdatedAt:      updatedAt,
	}))

	chunks := make([]domain.Chunk, len(embeddings))
	for i, emb := range embeddings {
		chunks[i] = domain.Chunk{
			ID:         docID + "-c" + string(rune('0'+i)),
			DocumentID: docID,
			TenantID:   tenant,
			Ordinal:    i,
			Content:    "chunk " + string(rune('0'+i)) + " of " + docID,
			Embedding:  emb,
		}
	}
	require.NoError(t, store.ReplaceChunks(ctx, tenant, docID, chunks))
}

func newTestRetriever(store *memory.DocumentStore, embedder *mockEmbedder, tenants ...domain.Tenant) *Retriever {
	return NewRetriever(store, embedder, newMockTenantDirectory(tenants...))
}

func TestRetrieverSearch_RanksByScore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	embedder := newMockEmbedder()
	embedder.vectors["payment terms"] = []float32{1, 0, 0}

	now := time.Now()
	seedChunkedDoc(t, store, retrievalTestTenant, "doc-a", now,
		[]float32{1, 0, 0},     // score 1.0
		[]float32{0.8, 0.6, 0}, // score 0.8
		[]float32{0, 1, 0},     // score 0, filtered
	)

	retriever := newTestRetriever(store, embedder, testTenant(retrievalTestTenant))

	results, err := retriever.Search(ctx, retrievalTestTenant, "payment terms", domain.RetrievalOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.8, results[1].Score, 1e-6)
	assert.Equal(t, "Title of doc-a", results[0].DocumentTitle)
	assert.Equal(t, domain.SourceMeetingNotes, results[0].SourceKind)
}

func TestRetrieverSearch_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	embedder := newMockEmbedder()
	embedder.vectors["anything"] = []float32{1, 0, 0}

	other := domain.TenantID("tn_other")
	now := time.Now()
	seedChunkedDoc(t, store, retrievalTestTenant, "doc-mine", now, []float32{1, 0, 0})
	seedChunkedDoc(t, store, other, "doc-theirs", now, []float32{1, 0, 0})

	retriever := newTestRetriever(store, embedder,
		testTenant(retrievalTestTenant), testTenant(other))

	results, err := retriever.Search(ctx, retrievalTestTenant, "anything", domain.RetrievalOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-mine", results[0].Chunk.DocumentID)
	assert.Equal(t, retrievalTestTenant, results[0].Chunk.TenantID)
}

func TestRetrieverSearch_TieBreakByRecencyThenOrdinal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	embedder := newMockEmbedder()
	embedder.vectors["q"] = []float32{1, 0, 0}

	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	// Identical scores everywhere: ranking must fall back to document
	// recency, then ordinal.
	seedChunkedDoc(t, store, retrievalTestTenant, "doc-old", older,
		[]float32{1, 0, 0}, []float32{1, 0, 0})
	seedChunkedDoc(t, store, retrievalTestTenant, "doc-new", newer,
		[]float32{1, 0, 0}, []float32{1, 0, 0})

	retriever := newTestRetriever(store, embedder, testTenant(retrievalTestTenant))

	results, err := retriever.Search(ctx, retrievalTestTenant, "q", domain.RetrievalOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "doc-new", results[0].Chunk.DocumentID)
	assert.Equal(t, 0, results[0].Chunk.Ordinal)
	assert.Equal(t, "doc-new", results[1].Chunk.DocumentID)
	assert.Equal(t, 1, results[1].Chunk.Ordinal)
	assert.Equal(t, "doc-old", results[2].Chunk.DocumentID)
	assert.Equal(t, 0, results[2].Chunk.Ordinal)

	// Repeated calls return the identical order.
	again, err := retriever.Search(ctx, retrievalTestTenant, "q", domain.RetrievalOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestRetrieverSearch_ThresholdAndLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	embedder := newMockEmbedder()
	embedder.vectors["q"] = []float32{1, 0, 0}

	now := time.Now()
	seedChunkedDoc(t, store, retrievalTestTenant, "doc-a", now,
		[]float32{1, 0, 0},
		[]float32{0.9, 0.436, 0},
		[]float32{0.5, 0.866, 0},
	)

	retriever := newTestRetriever(store, embedder, testTenant(retrievalTestTenant))

	// High threshold keeps only the exact match.
	results, err := retriever.Search(ctx, retrievalTestTenant, "q", domain.RetrievalOptions{Threshold: 0.95})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Limit truncates after ranking.
	results, err = retriever.Search(ctx, retrievalTestTenant, "q", domain.RetrievalOptions{Limit: 2, Threshold: 0.1})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Score >= results[1].Score)
}

func TestRetrieverSearch_EmptyCases(t *testing.T) {
	ctx := context.Background()

	t.Run("empty knowledge base", func(t *testing.T) {
		retriever := newTestRetriever(memory.NewDocumentStore(), newMockEmbedder(), testTenant(retrievalTestTenant))
		results, err := retriever.Search(ctx, retrievalTestTenant, "anything", domain.RetrievalOptions{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("blank query", func(t *testing.T) {
		embedder := newMockEmbedder()
		retriever := newTestRetriever(memory.NewDocumentStore(), embedder, testTenant(retrievalTestTenant))
		results, err := retriever.Search(ctx, retrievalTestTenant, "   ", domain.RetrievalOptions{})
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Zero(t, embedder.callCount(), "blank query must not hit the embedder")
	})

	t.Run("unknown tenant", func(t *testing.T) {
		retriever := newTestRetriever(memory.NewDocumentStore(), newMockEmbedder(), testTenant(retrievalTestTenant))
		_, err := retriever.Search(ctx, "tn_nobody", "anything", domain.RetrievalOptions{})
		assert.ErrorIs(t, err, domain.ErrUnknownTenant)
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}
