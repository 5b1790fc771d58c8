package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
)

// Ensure GenerationService implements the interface.
var _ driven.GenerationService = (*GenerationService)(nil)

const systemPrompt = `You answer questions for a business client using only the provided context passages.
Cite nothing outside them. If the context does not contain the answer, say so plainly instead of guessing.`

// GenerationService produces grounded answers through the OpenAI chat API.
type GenerationService struct {
	client  *goopenai.Client
	limiter *rate.Limiter
}

// NewGenerationService creates an OpenAI generation adapter.
func NewGenerationService(cfg Config) (*GenerationService, error) {
	client, limiter, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GenerationService{client: client, limiter: limiter}, nil
}

// Generate answers the query grounded in the passages, best passage
// first. With no passages the model is told the context is empty.
func (s *GenerationService) Generate(ctx context.Context, query string, passages []domain.RankedChunk, model string) (*driven.GenerationResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: buildPrompt(query, passages)},
		},
	})
	if err != nil {
		return nil, mapAPIError(err, domain.ErrGenerationUnavailable)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty completion response: %w", domain.ErrGenerationUnavailable)
	}

	return &driven.GenerationResult{
		Text:       resp.Choices[0].Message.Content,
		TokenCount: resp.Usage.TotalTokens,
	}, nil
}

// buildPrompt lays out the passages in retrieval order, numbered so the
// model can refer to them.
func buildPrompt(query string, passages []domain.RankedChunk) string {
	var b strings.Builder

	if len(passages) == 0 {
		b.WriteString("Context: (no relevant passages found)\n\n")
	} else {
		b.WriteString("Context passages:\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, p.DocumentTitle, p.SourceKind, p.Chunk.Content)
		}
	}

	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}
