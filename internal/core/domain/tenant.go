package domain

import "strings"

// TenantID is the canonical identifier of a tenant. Every document, chunk
// and query is scoped to exactly one TenantID; nothing crosses that line.
type TenantID string

// String returns the string representation.
func (t TenantID) String() string {
	return string(t)
}

// IsCanonical reports whether an identifier already has the canonical
// tenant id format ("tn_" followed by an opaque suffix). Canonical ids are
// returned by the resolver unchanged, without an alias lookup.
func IsCanonical(identifier string) bool {
	return strings.HasPrefix(identifier, "tn_") && len(identifier) > 3
}

// Tenant is a logical client with its own isolated knowledge base.
type Tenant struct {
	// ID is the canonical, stable identifier.
	ID TenantID

	// Slug is the human-facing alias registered for this tenant.
	Slug string

	// Settings holds per-tenant model and retrieval configuration.
	Settings TenantSettings

	// Connectors configures the external sources this tenant syncs from,
	// keyed by source kind.
	Connectors map[SourceKind]ConnectorConfig
}

// TenantSettings holds per-tenant model choices and retrieval tuning.
// Services snapshot these at the start of each operation; a settings
// change never takes effect mid-operation.
type TenantSettings struct {
	// EmbeddingModel identifies the embedding model for this tenant.
	// Chunks and queries must share it (one embedding space per tenant).
	EmbeddingModel string

	// ChatModel identifies the generation model for grounded answers.
	ChatModel string

	// RetrievalLimit caps how many passages ground an answer.
	RetrievalLimit int

	// ScoreThreshold is the minimum cosine similarity for a chunk to be
	// considered relevant. Range [-1, 1].
	ScoreThreshold float64
}

// Defaults applied when tenant settings leave a field unset.
const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultRetrievalLimit = 5
	DefaultScoreThreshold = 0.25
)

// Normalised returns a copy with defaults applied to unset fields.
func (s TenantSettings) Normalised() TenantSettings {
	if s.EmbeddingModel == "" {
		s.EmbeddingModel = DefaultEmbeddingModel
	}
	if s.ChatModel == "" {
		s.ChatModel = DefaultChatModel
	}
	if s.RetrievalLimit <= 0 {
		s.RetrievalLimit = DefaultRetrievalLimit
	}
	if s.ScoreThreshold == 0 {
		s.ScoreThreshold = DefaultScoreThreshold
	}
	return s
}

// ConnectorConfig describes how to reach one external source system for
// one tenant, and how its webhook deliveries are authenticated.
type ConnectorConfig struct {
	// Kind is the source kind this connector serves.
	Kind SourceKind

	// Endpoint is the base URL of the source system's API.
	Endpoint string

	// APIKey authenticates outbound fetch/list calls. May be empty for
	// sources that need no credentials.
	APIKey string

	// WebhookSecret is the shared secret for inbound webhook signatures.
	// When empty the connector runs in unsigned mode: deliveries are
	// trusted as-is. Reduced assurance, warned about loudly.
	WebhookSecret string

	// PollInterval overrides the scheduler's default tick for this
	// connector, in seconds. Zero means use the default.
	PollInterval int
}

// SignsWebhooks reports whether inbound deliveries must carry a valid
// signature.
func (c ConnectorConfig) SignsWebhooks() bool {
	return c.WebhookSecret != ""
}

// RoutingTable maps human-facing aliases to canonical tenant ids. It is an
// immutable snapshot: the resolver holds one version at a time and swaps
// the whole table when configuration changes, so lookups never observe a
// half-updated mapping.
type RoutingTable struct {
	// Version identifies this snapshot, increasing monotonically.
	Version int64

	// Aliases maps alias -> canonical tenant id.
	Aliases map[string]TenantID

	// DefaultTenant receives requests for unknown aliases when demo mode
	// is enabled. Unused otherwise.
	DefaultTenant TenantID
}

// Lookup returns the tenant id registered for an alias.
func (r *RoutingTable) Lookup(alias string) (TenantID, bool) {
	id, ok := r.Aliases[alias]
	return id, ok
}
