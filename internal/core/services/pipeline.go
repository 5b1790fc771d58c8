package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/answergrid/answergrid/internal/chunker"
	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
	"github.com/answergrid/answergrid/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driven.Pipeline = (*Pipeline)(nil)

// Embedding retry policy.
const (
	defaultEmbedAttempts = 3
	defaultEmbedBackoff  = 500 * time.Millisecond
)

// Pipeline turns document content into an embedded chunk set: overlapping
// token-bounded windows, each with a vector from the tenant's embedding
// model. The operation is all-or-nothing - if any window still fails to
// embed after retries, no chunk set is produced and the caller leaves the
// document's previous chunks in place.
type Pipeline struct {
	embedder driven.EmbeddingService
	splitter *chunker.Splitter

	maxAttempts int
	backoffBase time.Duration
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithSplitter overrides the window splitter.
func WithSplitter(s *chunker.Splitter) PipelineOption {
	return func(p *Pipeline) {
		if s != nil {
			p.splitter = s
		}
	}
}

// WithEmbedRetry sets the retry budget for individual window embeddings.
func WithEmbedRetry(attempts int, backoff time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
		if backoff > 0 {
			p.backoffBase = backoff
		}
	}
}

// NewPipeline creates a chunking and embedding pipeline.
func NewPipeline(embedder driven.EmbeddingService, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		embedder:    embedder,
		splitter:    chunker.New(),
		maxAttempts: defaultEmbedAttempts,
		backoffBase: defaultEmbedBackoff,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process splits the document and embeds every window. Ordinals are
// zero-based and contiguous. The embedding model is snapshotted from the
// settings once, at call start.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document, settings domain.TenantSettings) ([]domain.Chunk, error) {
	model := settings.Normalised().EmbeddingModel

	windows := p.splitter.Split(doc.Content)
	if len(windows) == 0 {
		return nil, nil
	}

	logger.Debug("pipeline: %s split into %d windows", doc.ID, len(windows))

	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		embedding, err := p.embedWithRetry(ctx, w.Text, model)
		if err != nil {
			return nil, fmt.Errorf("embed window %d of document %s: %w", i, doc.ID, err)
		}

		metadata := map[string]any{
			"document_title": doc.Title,
			"source_kind":    string(doc.SourceKind),
		}
		for k, v := range doc.Metadata {
			metadata[k] = v
		}

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			TenantID:   doc.TenantID,
			Ordinal:    i,
			Content:    w.Text,
			Embedding:  embedding,
			TokenCount: w.Tokens,
			Metadata:   metadata,
		})
	}

	return chunks, nil
}

// embedWithRetry retries transient embedding failures with exponential
// backoff up to the attempt budget.
func (p *Pipeline) embedWithRetry(ctx context.Context, text, model string) ([]float32, error) {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := p.backoffBase << (attempt - 1)
			logger.Debug("pipeline: embed retry %d after %v", attempt, backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		embedding, err := p.embedder.Embed(ctx, text, model)
		if err == nil {
			return embedding, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", p.maxAttempts, lastErr)
}
