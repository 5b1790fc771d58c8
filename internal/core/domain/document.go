package domain

import "time"

// SourceKind identifies the kind of external system a document came from.
type SourceKind string

// Known source kinds.
const (
	// SourceMeetingNotes is exported meeting notes.
	SourceMeetingNotes SourceKind = "meeting-notes"

	// SourceClientPage is a page in the client's workspace tool.
	SourceClientPage SourceKind = "client-page"

	// SourceWebsiteOutline is a crawled outline of the tenant's website.
	SourceWebsiteOutline SourceKind = "website-outline"

	// SourceChatExport is an exported chat transcript.
	SourceChatExport SourceKind = "chat-export"

	// SourceManualUpload is content uploaded directly by an operator.
	SourceManualUpload SourceKind = "manual-upload"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceMeetingNotes, SourceClientPage, SourceWebsiteOutline,
		SourceChatExport, SourceManualUpload:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// Document is one unit of ingested content from an external source.
//
// (TenantID, SourceKind, SourceNativeID) is unique: re-ingesting the same
// source item updates the existing document in place, never duplicates it.
type Document struct {
	// ID is stable across re-syncs of the same source item.
	ID string

	// TenantID scopes the document to exactly one tenant.
	TenantID TenantID

	// Title is the human-readable title.
	Title string

	// Content is the full text content.
	Content string

	// SourceKind identifies the origin system.
	SourceKind SourceKind

	// SourceNativeID is the item's identifier in the origin system,
	// used as the reconciliation key.
	SourceNativeID string

	// Metadata carries free-form origin properties.
	Metadata map[string]any

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document content last changed.
	UpdatedAt time.Time
}

// SourceKey returns the reconciliation key within a tenant.
func (d *Document) SourceKey() string {
	return string(d.SourceKind) + "/" + d.SourceNativeID
}

// Chunk is a retrievable fragment of one document's content. Chunk
// lifetime is strictly bounded by the owning document: a content update
// replaces the full chunk set, a delete removes it.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent document.
	DocumentID string

	// TenantID is denormalised from the parent for isolation-safe
	// querying: the retrieval engine filters on it directly.
	TenantID TenantID

	// Ordinal is the zero-based position within the document. Ordinals
	// are contiguous for a given document version.
	Ordinal int

	// Content is the chunk text.
	Content string

	// Embedding is the fixed-dimension vector for similarity scoring.
	Embedding []float32

	// TokenCount is the token count of Content.
	TokenCount int

	// Metadata is inherited from the parent and augmented per chunk.
	Metadata map[string]any
}
