package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTenantMismatch indicates a cross-tenant access attempt. Always
	// fatal to the call, never recovered.
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrUnknownTenant indicates an identifier that resolves to no
	// registered tenant.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrSourceUnavailable indicates the source system could not be
	// reached. Transient; retried with backoff.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceItemNotFound indicates the source item no longer exists
	// in the origin system.
	ErrSourceItemNotFound = errors.New("source item not found")

	// ErrEmbeddingUnavailable indicates the embedding service failed on
	// quota or timeout. Transient; retried with backoff.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generation service failed.
	// Surfaced to the caller rather than degraded into a partial answer.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrInvalidSignature indicates a webhook delivery failed signature
	// verification. The request fails closed; nothing is processed.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// FaultKind tags a Fault with its place in the error taxonomy. The set is
// closed: the HTTP boundary switches over it exhaustively.
type FaultKind string

// The closed set of fault kinds.
const (
	FaultTenantMismatch        FaultKind = "tenant_mismatch"
	FaultUnknownTenant         FaultKind = "unknown_tenant"
	FaultInvalidInput          FaultKind = "invalid_input"
	FaultNotFound              FaultKind = "not_found"
	FaultInvalidSignature      FaultKind = "invalid_signature"
	FaultSourceUnavailable     FaultKind = "source_unavailable"
	FaultEmbeddingUnavailable  FaultKind = "embedding_unavailable"
	FaultGenerationUnavailable FaultKind = "generation_unavailable"
	FaultInternal              FaultKind = "internal"
)

// HTTPStatus maps a fault kind to the status code the boundary returns.
func (k FaultKind) HTTPStatus() int {
	switch k {
	case FaultTenantMismatch:
		return http.StatusForbidden
	case FaultUnknownTenant:
		return http.StatusNotFound
	case FaultInvalidInput:
		return http.StatusBadRequest
	case FaultNotFound:
		return http.StatusNotFound
	case FaultInvalidSignature:
		return http.StatusUnauthorized
	case FaultSourceUnavailable, FaultEmbeddingUnavailable, FaultGenerationUnavailable:
		return http.StatusBadGateway
	case FaultInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Fault is the tagged error variant crossing the service boundary. It
// carries a kind for exhaustive matching and wraps the underlying cause so
// errors.Is still sees the sentinel.
type Fault struct {
	Kind    FaultKind
	Message string
	Err     error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

// Unwrap exposes the wrapped cause.
func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault creates a Fault wrapping a cause.
func NewFault(kind FaultKind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

// ClassifyFault maps any error to a Fault. Errors that already are Faults
// pass through; known sentinels get their taxonomy kind; everything else
// is internal.
func ClassifyFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	kind := FaultInternal
	switch {
	case errors.Is(err, ErrTenantMismatch):
		kind = FaultTenantMismatch
	case errors.Is(err, ErrUnknownTenant):
		kind = FaultUnknownTenant
	case errors.Is(err, ErrInvalidInput):
		kind = FaultInvalidInput
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSourceItemNotFound):
		kind = FaultNotFound
	case errors.Is(err, ErrInvalidSignature):
		kind = FaultInvalidSignature
	case errors.Is(err, ErrSourceUnavailable):
		kind = FaultSourceUnavailable
	case errors.Is(err, ErrEmbeddingUnavailable):
		kind = FaultEmbeddingUnavailable
	case errors.Is(err, ErrGenerationUnavailable):
		kind = FaultGenerationUnavailable
	}

	return &Fault{Kind: kind, Message: err.Error(), Err: err}
}
