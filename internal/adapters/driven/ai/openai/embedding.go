// Package openai adapts the OpenAI API to the embedding and generation
// ports. One client serves every tenant; the model is chosen per call
// from tenant settings.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default request throttle, requests per second against the API.
const defaultRequestsPerSecond = 10

// Config holds connection settings shared by both adapters.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL, for Azure or compatible APIs.
	BaseURL string

	// RequestsPerSecond throttles outbound calls. Zero uses the default.
	RequestsPerSecond float64
}

func newClient(cfg Config) (*goopenai.Client, *rate.Limiter, error) {
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("openai: API key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	return goopenai.NewClientWithConfig(clientCfg), rate.NewLimiter(rate.Limit(rps), 1), nil
}

// EmbeddingService generates embeddings through the OpenAI API.
type EmbeddingService struct {
	client  *goopenai.Client
	limiter *rate.Limiter
}

// NewEmbeddingService creates an OpenAI embedding adapter.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	client, limiter, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &EmbeddingService{client: client, limiter: limiter}, nil
}

// Embed generates a vector embedding for the text with the given model.
func (s *EmbeddingService) Embed(ctx context.Context, text, model string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(model),
		Input: []string{text},
	})
	if err != nil {
		return nil, mapAPIError(err, domain.ErrEmbeddingUnavailable)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: empty embedding response: %w", domain.ErrEmbeddingUnavailable)
	}

	return resp.Data[0].Embedding, nil
}

// mapAPIError wraps transport and quota failures in the given sentinel
// so callers can treat them as transient. Request-shape errors (bad
// model name, oversized input) pass through unwrapped.
func mapAPIError(err error, sentinel error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests,
			apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("openai: %v: %w", err, sentinel)
		default:
			return fmt.Errorf("openai: %w", err)
		}
	}
	// Anything that is not a structured API error is a transport
	// failure: unreachable host, timeout, cancelled context.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("openai: %v: %w", err, sentinel)
}
