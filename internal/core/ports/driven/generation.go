package driven

import (
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// GenerationResult is the generation service's output.
type GenerationResult struct {
	// Text is the generated answer.
	Text string

	// TokenCount is the service's reported token usage.
	TokenCount int
}

// GenerationService produces a grounded answer from a query and the
// retrieved passages. The service is opaque: prompt construction beyond
// passage ordering is its concern.
//
// Failures surface as domain.ErrGenerationUnavailable.
type GenerationService interface {
	// Generate answers the query using the passages as grounding
	// context, with the given model. Passages may be empty, in which
	// case the answer is ungrounded.
	Generate(ctx context.Context, query string, passages []domain.RankedChunk, model string) (*GenerationResult, error)
}
