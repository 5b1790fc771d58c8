package domain

import "time"

// RetrievalOptions tunes a similarity search. Zero values fall back to the
// tenant's settings.
type RetrievalOptions struct {
	// Limit is the maximum number of ranked chunks returned.
	Limit int

	// Threshold is the minimum cosine similarity to retain a chunk.
	Threshold float64
}

// RankedChunk is one retrieval hit: a chunk with its similarity score and
// enough parent-document context to cite it.
type RankedChunk struct {
	// Chunk is the matched fragment.
	Chunk Chunk

	// Score is the cosine similarity against the query, range [-1, 1].
	Score float64

	// DocumentTitle is the parent document's title.
	DocumentTitle string

	// SourceKind is the parent document's origin.
	SourceKind SourceKind

	// DocumentUpdatedAt is the parent document's recency, used as the
	// first tie-breaker in ranking.
	DocumentUpdatedAt time.Time
}
