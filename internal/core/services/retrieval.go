package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
	"github.com/answergrid/answergrid/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Retriever ranks a tenant's chunks against a query by cosine similarity.
// The scan is linear over the tenant's chunks; the ranking contract
// (threshold, deterministic tie-break) is what downstream generation
// depends on, not the index structure behind it.
type Retriever struct {
	docStore driven.DocumentStore
	embedder driven.EmbeddingService
	tenants  driven.TenantDirectory
}

// NewRetriever creates a retrieval engine.
func NewRetriever(docStore driven.DocumentStore, embedder driven.EmbeddingService, tenants driven.TenantDirectory) *Retriever {
	return &Retriever{
		docStore: docStore,
		embedder: embedder,
		tenants:  tenants,
	}
}

// Search embeds the query with the tenant's embedding model and returns
// the tenant's chunks scoring at or above the threshold, best first. Ties
// break by document recency descending, then chunk ordinal ascending. An
// empty knowledge base yields an empty, non-error result.
func (r *Retriever) Search(ctx context.Context, tenant domain.TenantID, query string, opts domain.RetrievalOptions) ([]domain.RankedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RankedChunk{}, nil
	}

	tenantRec, err := r.tenants.Get(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("get tenant %s: %w", tenant, err)
	}
	// Settings snapshot: the embedding model must not change mid-call.
	settings := tenantRec.Settings.Normalised()

	limit := opts.Limit
	if limit <= 0 {
		limit = settings.RetrievalLimit
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = settings.ScoreThreshold
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query, settings.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := r.docStore.ListChunks(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return []domain.RankedChunk{}, nil
	}

	docs, err := r.docStore.GetAll(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docByID := make(map[string]*domain.Document, len(docs))
	for i := range docs {
		docByID[docs[i].ID] = &docs[i]
	}

	results := make([]domain.RankedChunk, 0, len(chunks))
	for i := range chunks {
		doc, ok := docByID[chunks[i].DocumentID]
		if !ok {
			// Chunk's document was deleted under us; skip it.
			continue
		}

		score := cosineSimilarity(queryEmbedding, chunks[i].Embedding)
		if score < threshold {
			continue
		}

		results = append(results, domain.RankedChunk{
			Chunk:             chunks[i],
			Score:             score,
			DocumentTitle:     doc.Title,
			SourceKind:        doc.SourceKind,
			DocumentUpdatedAt: doc.UpdatedAt,
		})
	}

	sortRanked(results)

	if len(results) > limit {
		results = results[:limit]
	}

	logger.Debug("retrieval: tenant=%s query_len=%d hits=%d", tenant, len(query), len(results))
	return results, nil
}

// sortRanked orders results by score descending, then document recency
// descending, then ordinal ascending, then document id for full
// determinism across repeated calls.
func sortRanked(results []domain.RankedChunk) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].DocumentUpdatedAt.Equal(results[j].DocumentUpdatedAt) {
			return results[i].DocumentUpdatedAt.After(results[j].DocumentUpdatedAt)
		}
		if results[i].Chunk.Ordinal != results[j].Chunk.Ordinal {
			return results[i].Chunk.Ordinal < results[j].Chunk.Ordinal
		}
		return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
	})
}

// cosineSimilarity computes the cosine of the angle between two vectors,
// range [-1, 1]. Mismatched dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
