package driven

import "context"

// EmbeddingService generates vector embeddings from text. Chunks and
// queries of one tenant must go through the same model; callers snapshot
// the model id from tenant settings at the start of each operation.
//
// Quota and timeout failures surface as domain.ErrEmbeddingUnavailable.
type EmbeddingService interface {
	// Embed generates a fixed-dimension embedding for the text using the
	// given model.
	Embed(ctx context.Context, text, model string) ([]float32, error)
}
