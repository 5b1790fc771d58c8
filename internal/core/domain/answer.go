package domain

// SourceRef cites one passage that grounded an answer.
type SourceRef struct {
	// DocumentID identifies the cited document.
	DocumentID string `json:"document_id"`

	// ChunkID identifies the cited chunk.
	ChunkID string `json:"chunk_id"`

	// Title is the document title for rendering.
	Title string `json:"title"`

	// SourceKind is the document's origin.
	SourceKind SourceKind `json:"source_kind"`

	// Score is the similarity score the chunk retrieved with.
	Score float64 `json:"score"`
}

// Answer is a generated response together with its citations.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"text"`

	// Sources lists the passages the answer was grounded in, in the
	// order they were passed to generation. Empty for ungrounded answers.
	Sources []SourceRef `json:"sources"`

	// TokenCount is the generation service's reported token usage.
	TokenCount int `json:"token_count"`

	// Grounded is false when retrieval returned no passages and the
	// answer was generated without knowledge-base context.
	Grounded bool `json:"grounded"`
}
