package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
	"github.com/answergrid/answergrid/internal/logger"
)

// Ensure Answerer implements the interface.
var _ driving.Answerer = (*Answerer)(nil)

// Answerer assembles grounded answers: it resolves the tenant, retrieves
// relevant passages and forwards query plus passages to the generation
// service. Retrieval problems degrade to an ungrounded answer; generation
// problems surface to the caller.
type Answerer struct {
	resolver  driving.TenantResolver
	retriever driving.Retriever
	generator driven.GenerationService
	tenants   driven.TenantDirectory
}

// NewAnswerer creates a response assembler.
func NewAnswerer(
	resolver driving.TenantResolver,
	retriever driving.Retriever,
	generator driven.GenerationService,
	tenants driven.TenantDirectory,
) *Answerer {
	return &Answerer{
		resolver:  resolver,
		retriever: retriever,
		generator: generator,
		tenants:   tenants,
	}
}

// Answer produces a generated answer with citations for a tenant query.
func (a *Answerer) Answer(ctx context.Context, tenantIdentifier, query string) (*domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}

	tenantID, err := a.resolver.Resolve(tenantIdentifier)
	if err != nil {
		return nil, err
	}

	tenantRec, err := a.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant %s: %w", tenantID, err)
	}
	// Snapshot: the models used are fixed for the duration of this call.
	settings := tenantRec.Settings.Normalised()

	passages, err := a.retriever.Search(ctx, tenantID, query, domain.RetrievalOptions{
		Limit:     settings.RetrievalLimit,
		Threshold: settings.ScoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}

	grounded := len(passages) > 0
	if !grounded {
		logger.Info("answer: no passages above threshold for tenant %s, generating ungrounded", tenantID)
	}

	result, err := a.generator.Generate(ctx, query, passages, settings.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]domain.SourceRef, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, domain.SourceRef{
			DocumentID: p.Chunk.DocumentID,
			ChunkID:    p.Chunk.ID,
			Title:      p.DocumentTitle,
			SourceKind: p.SourceKind,
			Score:      p.Score,
		})
	}

	return &domain.Answer{
		Text:       result.Text,
		Sources:    sources,
		TokenCount: result.TokenCount,
		Grounded:   grounded,
	}, nil
}
