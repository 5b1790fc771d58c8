package domain

import "time"

// SyncCursor is per-tenant, per-source reconciliation state: the last-seen
// version of every known source item, plus retry bookkeeping for items
// that failed to ingest. It is mutated only by the sync orchestrator.
//
// The cursor is ephemeral in the sense that losing it costs redundant
// re-ingestion work on the next full pass, never data loss.
type SyncCursor struct {
	// TenantID scopes the cursor.
	TenantID TenantID

	// SourceKind is the source this cursor tracks.
	SourceKind SourceKind

	// ItemVersions maps source-native id -> last successfully ingested
	// version. An item absent from the map has never been ingested.
	ItemVersions map[string]string

	// FailureCounts maps source-native id -> consecutive ingest failures.
	// Reset to zero on success, surfaced as a persistent failure once the
	// retry budget is exhausted.
	FailureCounts map[string]int

	// LastFullSync is when the last full listing pass completed.
	LastFullSync time.Time
}

// NewSyncCursor returns an empty cursor for a tenant and source.
func NewSyncCursor(tenant TenantID, kind SourceKind) *SyncCursor {
	return &SyncCursor{
		TenantID:      tenant,
		SourceKind:    kind,
		ItemVersions:  make(map[string]string),
		FailureCounts: make(map[string]int),
	}
}

// SeenVersion returns the last ingested version of an item, if any.
func (c *SyncCursor) SeenVersion(sourceNativeID string) (string, bool) {
	v, ok := c.ItemVersions[sourceNativeID]
	return v, ok
}

// Advance records a successful ingest of an item at a version and clears
// its failure count.
func (c *SyncCursor) Advance(sourceNativeID, version string) {
	if c.ItemVersions == nil {
		c.ItemVersions = make(map[string]string)
	}
	c.ItemVersions[sourceNativeID] = version
	delete(c.FailureCounts, sourceNativeID)
}

// Forget drops all cursor state for an item. Called when the item is
// deleted at the source.
func (c *SyncCursor) Forget(sourceNativeID string) {
	delete(c.ItemVersions, sourceNativeID)
	delete(c.FailureCounts, sourceNativeID)
}

// RecordFailure increments an item's failure count and returns the new
// count.
func (c *SyncCursor) RecordFailure(sourceNativeID string) int {
	if c.FailureCounts == nil {
		c.FailureCounts = make(map[string]int)
	}
	c.FailureCounts[sourceNativeID]++
	return c.FailureCounts[sourceNativeID]
}

// ReconcileOutcome describes what a single-item reconciliation did.
type ReconcileOutcome int

const (
	// OutcomeIngested means the item was fetched and (re)ingested.
	OutcomeIngested ReconcileOutcome = iota

	// OutcomeUnchanged means the fetched version matched the cursor;
	// nothing was written. A no-op, not an error.
	OutcomeUnchanged

	// OutcomeCoalesced means another reconciliation of the same item was
	// already in flight and this trigger was discarded.
	OutcomeCoalesced

	// OutcomeDeleted means the item no longer exists at the source and
	// its document was removed.
	OutcomeDeleted
)

// String returns a short name for logging.
func (o ReconcileOutcome) String() string {
	switch o {
	case OutcomeIngested:
		return "ingested"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeCoalesced:
		return "coalesced"
	case OutcomeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// SourceItem is one entry of a source system's full listing, used for
// change detection and deletion reconciliation.
type SourceItem struct {
	// SourceNativeID identifies the item in the origin system.
	SourceNativeID string

	// Version is the item's current version or modification timestamp,
	// opaque to us beyond equality comparison.
	Version string
}

// SourceContent is the payload of a single fetched source item.
type SourceContent struct {
	// Title is the item's title in the origin system.
	Title string

	// Content is the full text.
	Content string

	// Version is the fetched version, recorded on the cursor after a
	// successful ingest.
	Version string

	// Properties carries origin metadata, stored on the document.
	Properties map[string]any
}
