package domain

import "encoding/json"

// WebhookEventType identifies what a source system is announcing.
type WebhookEventType string

// Known webhook event types.
const (
	// EventItemChanged announces a created or updated source item.
	EventItemChanged WebhookEventType = "item.changed"

	// EventItemDeleted announces a deleted source item.
	EventItemDeleted WebhookEventType = "item.deleted"
)

// IsValid returns true if the event type is recognised.
func (t WebhookEventType) IsValid() bool {
	return t == EventItemChanged || t == EventItemDeleted
}

// WebhookEvent is one inbound delivery from a source system, decoded from
// the request payload after signature verification.
type WebhookEvent struct {
	// Type is the event type.
	Type WebhookEventType `json:"type"`

	// Tenant is the tenant identifier (canonical id or alias) the
	// delivery is addressed to.
	Tenant string `json:"tenant"`

	// SourceKind identifies which connector the event belongs to.
	SourceKind SourceKind `json:"source_kind"`

	// SourceNativeID is the affected item's id in the origin system.
	SourceNativeID string `json:"source_native_id"`

	// Payload is the source's raw event body, kept for diagnostics.
	Payload json.RawMessage `json:"payload,omitempty"`
}
