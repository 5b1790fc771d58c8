package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
	"github.com/answergrid/answergrid/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// Orchestrator defaults.
const (
	defaultItemTimeout = 2 * time.Minute
	defaultMaxFailures = 5
	defaultParallelism = 4
)

// SyncOrchestrator reconciles external source state into the document
// store. Each (tenant, source kind, source-native id) unit runs the
// fetch/diff/ingest sequence; duplicate triggers for a unit already in
// flight are coalesced, which is what keeps webhook and poll paths from
// double-processing the same item.
type SyncOrchestrator struct {
	tenants  driven.TenantDirectory
	docStore driven.DocumentStore
	cursors  driven.SyncCursorStore
	source   driven.SourceClient
	pipeline driven.Pipeline
	resolver driving.TenantResolver

	itemTimeout time.Duration
	maxFailures int
	parallelism int

	mu       sync.Mutex
	inFlight map[string]struct{}
	status   map[string]*driving.SyncStatus
	cursorMu map[string]*sync.Mutex
}

// SyncOption configures the orchestrator.
type SyncOption func(*SyncOrchestrator)

// WithItemTimeout bounds the wall-clock budget of a single-item
// reconciliation. An item exceeding it is aborted and retried later; a
// stuck item never blocks the scheduler.
func WithItemTimeout(d time.Duration) SyncOption {
	return func(o *SyncOrchestrator) {
		if d > 0 {
			o.itemTimeout = d
		}
	}
}

// WithMaxFailures sets how many consecutive ingest failures an item may
// accumulate before it is surfaced as a persistent failure.
func WithMaxFailures(n int) SyncOption {
	return func(o *SyncOrchestrator) {
		if n > 0 {
			o.maxFailures = n
		}
	}
}

// WithTenantResolver lets webhook events address tenants by registered
// alias. Without one, events must carry the canonical tenant id.
func WithTenantResolver(r driving.TenantResolver) SyncOption {
	return func(o *SyncOrchestrator) {
		o.resolver = r
	}
}

// WithParallelism bounds how many items a full pass processes at once.
func WithParallelism(n int) SyncOption {
	return func(o *SyncOrchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// NewSyncOrchestrator creates a sync orchestrator.
func NewSyncOrchestrator(
	tenants driven.TenantDirectory,
	docStore driven.DocumentStore,
	cursors driven.SyncCursorStore,
	source driven.SourceClient,
	pipeline driven.Pipeline,
	opts ...SyncOption,
) *SyncOrchestrator {
	o := &SyncOrchestrator{
		tenants:     tenants,
		docStore:    docStore,
		cursors:     cursors,
		source:      source,
		pipeline:    pipeline,
		itemTimeout: defaultItemTimeout,
		maxFailures: defaultMaxFailures,
		parallelism: defaultParallelism,
		inFlight:    make(map[string]struct{}),
		status:      make(map[string]*driving.SyncStatus),
		cursorMu:    make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// HandleWebhook reconciles the item a verified webhook event refers to.
func (o *SyncOrchestrator) HandleWebhook(ctx context.Context, event domain.WebhookEvent) (domain.ReconcileOutcome, error) {
	if !event.Type.IsValid() {
		return 0, fmt.Errorf("webhook event type %q: %w", event.Type, domain.ErrInvalidInput)
	}
	if !event.SourceKind.IsValid() {
		return 0, fmt.Errorf("source kind %q: %w", event.SourceKind, domain.ErrInvalidInput)
	}
	if event.SourceNativeID == "" {
		return 0, fmt.Errorf("missing source native id: %w", domain.ErrInvalidInput)
	}

	tenant := domain.TenantID(event.Tenant)
	if o.resolver != nil {
		resolved, err := o.resolver.Resolve(event.Tenant)
		if err != nil {
			return 0, fmt.Errorf("webhook tenant %q: %w", event.Tenant, err)
		}
		tenant = resolved
	}
	if _, err := o.tenants.Get(ctx, tenant); err != nil {
		return 0, fmt.Errorf("webhook tenant %q: %w", event.Tenant, err)
	}

	switch event.Type {
	case domain.EventItemDeleted:
		return o.deleteItem(ctx, tenant, event.SourceKind, event.SourceNativeID)
	default:
		return o.ReconcileItem(ctx, tenant, event.SourceKind, event.SourceNativeID)
	}
}

// ReconcileItem runs the fetch/diff/ingest state machine for one source
// item. A second trigger while the item is in flight is coalesced.
func (o *SyncOrchestrator) ReconcileItem(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind, sourceNativeID string) (domain.ReconcileOutcome, error) {
	cfg, settings, err := o.connectorFor(ctx, tenant, kind)
	if err != nil {
		return 0, err
	}

	key := unitKey(tenant, kind, sourceNativeID)
	if !o.tryAcquire(key) {
		logger.Debug("sync: coalesced duplicate trigger for %s", key)
		return domain.OutcomeCoalesced, nil
	}
	defer o.release(key)

	ctx, cancel := context.WithTimeout(ctx, o.itemTimeout)
	defer cancel()

	// Fetching
	content, err := o.source.FetchItem(ctx, cfg, sourceNativeID)
	if err != nil {
		if errors.Is(err, domain.ErrSourceItemNotFound) {
			return o.removeKnownItem(ctx, tenant, kind, sourceNativeID)
		}
		// No partial progress: cursor untouched, retried next tick.
		return 0, fmt.Errorf("fetch %s: %w", key, err)
	}

	// Diffing
	cursor, err := o.loadCursor(ctx, tenant, kind)
	if err != nil {
		return 0, err
	}
	if seen, ok := cursor.SeenVersion(sourceNativeID); ok && seen == content.Version {
		logger.Debug("sync: %s unchanged at version %s", key, content.Version)
		return domain.OutcomeUnchanged, nil
	}

	// Ingesting
	if err := o.ingestItem(ctx, tenant, kind, sourceNativeID, content, settings); err != nil {
		return 0, err
	}

	return domain.OutcomeIngested, nil
}

// ReconcileSource runs a full pass over one tenant's source: diff and
// ingest every listed item, then delete documents whose source-native id
// was absent from the listing. One item's failure never aborts its
// siblings.
func (o *SyncOrchestrator) ReconcileSource(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) (*driving.SyncReport, error) {
	cfg, _, err := o.connectorFor(ctx, tenant, kind)
	if err != nil {
		return nil, err
	}

	o.setStatus(tenant, kind, &driving.SyncStatus{Tenant: tenant, SourceKind: kind, Running: true})
	defer o.clearStatus(tenant, kind)

	logger.Info("sync: full pass for tenant=%s source=%s", tenant, kind)

	items, err := o.source.ListItems(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("list items for %s/%s: %w", tenant, kind, err)
	}

	cursor, err := o.loadCursor(ctx, tenant, kind)
	if err != nil {
		return nil, err
	}

	report := &driving.SyncReport{}
	var reportMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)

	for _, item := range items {
		seen, known := cursor.SeenVersion(item.SourceNativeID)
		if known && seen == item.Version {
			// Listing version matches the cursor: nothing to fetch.
			reportMu.Lock()
			report.ItemsProcessed++
			reportMu.Unlock()
			o.bumpStatus(tenant, kind, false)
			continue
		}

		g.Go(func() error {
			outcome, itemErr := o.ReconcileItem(gctx, tenant, kind, item.SourceNativeID)

			reportMu.Lock()
			defer reportMu.Unlock()
			report.ItemsProcessed++
			switch {
			case itemErr != nil:
				report.Failures++
				logger.Warn("sync: item %s/%s/%s failed: %v", tenant, kind, item.SourceNativeID, itemErr)
				o.bumpStatus(tenant, kind, true)
			case outcome == domain.OutcomeIngested:
				report.ItemsIngested++
				o.bumpStatus(tenant, kind, false)
			default:
				o.bumpStatus(tenant, kind, false)
			}
			// Item failures are independent; never cancel siblings.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	deleted, err := o.reconcileDeletions(ctx, tenant, kind, items)
	if err != nil {
		return report, err
	}
	report.ItemsDeleted = deleted

	mu := o.lockCursor(tenant, kind)
	mu.Lock()
	defer mu.Unlock()
	cursor, err = o.loadCursor(ctx, tenant, kind)
	if err != nil {
		return report, err
	}
	cursor.LastFullSync = time.Now()
	if err := o.cursors.Save(ctx, cursor); err != nil {
		return report, fmt.Errorf("save cursor: %w", err)
	}

	logger.Info("sync: full pass done tenant=%s source=%s processed=%d ingested=%d deleted=%d failures=%d",
		tenant, kind, report.ItemsProcessed, report.ItemsIngested, report.ItemsDeleted, report.Failures)

	return report, nil
}

// IngestManual ingests operator-provided content directly. The content
// hash stands in for a source version, so re-uploading identical content
// is a no-op like any other unchanged item.
func (o *SyncOrchestrator) IngestManual(ctx context.Context, tenant domain.TenantID, sourceNativeID, title, content string) error {
	tenantRec, err := o.tenants.Get(ctx, tenant)
	if err != nil {
		return fmt.Errorf("get tenant %s: %w", tenant, err)
	}
	if sourceNativeID == "" || content == "" {
		return fmt.Errorf("manual upload needs an id and content: %w", domain.ErrInvalidInput)
	}
	settings := tenantRec.Settings.Normalised()

	kind := domain.SourceManualUpload
	key := unitKey(tenant, kind, sourceNativeID)
	if !o.tryAcquire(key) {
		logger.Debug("sync: coalesced duplicate upload for %s", key)
		return nil
	}
	defer o.release(key)

	ctx, cancel := context.WithTimeout(ctx, o.itemTimeout)
	defer cancel()

	sum := sha256.Sum256([]byte(title + "\x00" + content))
	version := hex.EncodeToString(sum[:8])

	cursor, err := o.loadCursor(ctx, tenant, kind)
	if err != nil {
		return err
	}
	if seen, ok := cursor.SeenVersion(sourceNativeID); ok && seen == version {
		logger.Debug("sync: upload %s unchanged", key)
		return nil
	}

	return o.ingestItem(ctx, tenant, kind, sourceNativeID, &domain.SourceContent{
		Title:   title,
		Content: content,
		Version: version,
	}, settings)
}

// Status returns the current status of a reconciliation unit.
func (o *SyncOrchestrator) Status(_ context.Context, tenant domain.TenantID, kind domain.SourceKind) (*driving.SyncStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.status[sourceKey(tenant, kind)]; ok {
		copied := *s
		return &copied, nil
	}
	return &driving.SyncStatus{Tenant: tenant, SourceKind: kind}, nil
}

// ingestItem runs the pipeline and commits document plus chunk set, then
// advances the cursor. The pipeline runs before any write, so an
// embedding failure leaves the previously committed document and chunks
// fully intact.
func (o *SyncOrchestrator) ingestItem(
	ctx context.Context,
	tenant domain.TenantID,
	kind domain.SourceKind,
	sourceNativeID string,
	content *domain.SourceContent,
	settings domain.TenantSettings,
) error {
	key := unitKey(tenant, kind, sourceNativeID)

	doc, err := o.findBySourceID(ctx, tenant, kind, sourceNativeID)
	if err != nil {
		return err
	}

	now := time.Now()
	if doc == nil {
		doc = &domain.Document{
			ID:             uuid.New().String(),
			TenantID:       tenant,
			SourceKind:     kind,
			SourceNativeID: sourceNativeID,
			CreatedAt:      now,
		}
	}
	doc.Title = content.Title
	doc.Content = content.Content
	doc.Metadata = content.Properties
	doc.UpdatedAt = now

	chunks, err := o.pipeline.Process(ctx, doc, settings)
	if err != nil {
		o.noteFailure(ctx, tenant, kind, sourceNativeID)
		return fmt.Errorf("process %s: %w", key, err)
	}

	if err := o.docStore.Upsert(ctx, doc); err != nil {
		o.noteFailure(ctx, tenant, kind, sourceNativeID)
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	if err := o.docStore.ReplaceChunks(ctx, tenant, doc.ID, chunks); err != nil {
		o.noteFailure(ctx, tenant, kind, sourceNativeID)
		return fmt.Errorf("replace chunks for %s: %w", key, err)
	}

	mu := o.lockCursor(tenant, kind)
	mu.Lock()
	defer mu.Unlock()
	cursor, err := o.loadCursor(ctx, tenant, kind)
	if err != nil {
		return err
	}
	cursor.Advance(sourceNativeID, content.Version)
	if err := o.cursors.Save(ctx, cursor); err != nil {
		return fmt.Errorf("save cursor after %s: %w", key, err)
	}

	logger.Debug("sync: ingested %s at version %s (%d chunks)", key, content.Version, len(chunks))
	return nil
}

// removeKnownItem deletes the document for a source item that no longer
// exists at the source and forgets its cursor state.
func (o *SyncOrchestrator) removeKnownItem(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind, sourceNativeID string) (domain.ReconcileOutcome, error) {
	doc, err := o.findBySourceID(ctx, tenant, kind, sourceNativeID)
	if err != nil {
		return 0, err
	}

	removed := false
	if doc != nil {
		if err := o.docStore.Delete(ctx, tenant, doc.ID); err != nil {
			return 0, fmt.Errorf("delete document %s: %w", doc.ID, err)
		}
		removed = true
	}

	mu := o.lockCursor(tenant, kind)
	mu.Lock()
	defer mu.Unlock()
	cursor, err := o.loadCursor(ctx, tenant, kind)
	if err != nil {
		return 0, err
	}
	if _, known := cursor.SeenVersion(sourceNativeID); known || cursor.FailureCounts[sourceNativeID] > 0 {
		cursor.Forget(sourceNativeID)
		if err := o.cursors.Save(ctx, cursor); err != nil {
			return 0, fmt.Errorf("save cursor: %w", err)
		}
		removed = true
	}

	if removed {
		logger.Debug("sync: removed %s", unitKey(tenant, kind, sourceNativeID))
		return domain.OutcomeDeleted, nil
	}
	return domain.OutcomeUnchanged, nil
}

// deleteItem is the webhook deletion path; it coalesces against an
// in-flight reconciliation of the same item.
func (o *SyncOrchestrator) deleteItem(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind, sourceNativeID string) (domain.ReconcileOutcome, error) {
	key := unitKey(tenant, kind, sourceNativeID)
	if !o.tryAcquire(key) {
		logger.Debug("sync: coalesced delete for in-flight %s", key)
		return domain.OutcomeCoalesced, nil
	}
	defer o.release(key)

	return o.removeKnownItem(ctx, tenant, kind, sourceNativeID)
}

// reconcileDeletions removes documents whose source-native id was absent
// from the latest full listing.
func (o *SyncOrchestrator) reconcileDeletions(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind, listed []domain.SourceItem) (int, error) {
	present := make(map[string]struct{}, len(listed))
	for _, item := range listed {
		present[item.SourceNativeID] = struct{}{}
	}

	docs, err := o.docStore.GetBySource(ctx, tenant, kind)
	if err != nil {
		return 0, fmt.Errorf("list documents for %s/%s: %w", tenant, kind, err)
	}

	deleted := 0
	for i := range docs {
		if _, ok := present[docs[i].SourceNativeID]; ok {
			continue
		}
		outcome, err := o.deleteItem(ctx, tenant, kind, docs[i].SourceNativeID)
		if err != nil {
			logger.Warn("sync: deletion reconciliation for %s failed: %v", docs[i].SourceNativeID, err)
			continue
		}
		if outcome == domain.OutcomeDeleted {
			deleted++
		}
	}

	return deleted, nil
}

// noteFailure records a consecutive ingest failure on the cursor and
// surfaces a persistent-failure signal once the retry budget is spent.
func (o *SyncOrchestrator) noteFailure(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind, sourceNativeID string) {
	mu := o.lockCursor(tenant, kind)
	mu.Lock()
	defer mu.Unlock()

	cursor, err := o.loadCursor(ctx, tenant, kind)
	if err != nil {
		logger.Warn("sync: cannot record failure for %s: %v", sourceNativeID, err)
		return
	}

	count := cursor.RecordFailure(sourceNativeID)
	if err := o.cursors.Save(ctx, cursor); err != nil {
		logger.Warn("sync: cannot save failure count for %s: %v", sourceNativeID, err)
		return
	}

	if count >= o.maxFailures {
		logger.Error("sync: item %s has failed %d consecutive times, needs attention",
			unitKey(tenant, kind, sourceNativeID), count)
	}
}

// connectorFor returns the tenant's connector config for a source kind
// and a settings snapshot taken at call start.
func (o *SyncOrchestrator) connectorFor(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) (domain.ConnectorConfig, domain.TenantSettings, error) {
	tenantRec, err := o.tenants.Get(ctx, tenant)
	if err != nil {
		return domain.ConnectorConfig{}, domain.TenantSettings{}, fmt.Errorf("get tenant %s: %w", tenant, err)
	}

	cfg, ok := tenantRec.Connectors[kind]
	if !ok {
		return domain.ConnectorConfig{}, domain.TenantSettings{}, fmt.Errorf("tenant %s has no %s connector: %w", tenant, kind, domain.ErrInvalidInput)
	}

	return cfg, tenantRec.Settings.Normalised(), nil
}

// findBySourceID locates a tenant's document by its reconciliation key.
func (o *SyncOrchestrator) findBySourceID(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind, sourceNativeID string) (*domain.Document, error) {
	docs, err := o.docStore.GetBySource(ctx, tenant, kind)
	if err != nil {
		return nil, fmt.Errorf("list documents for %s/%s: %w", tenant, kind, err)
	}
	for i := range docs {
		if docs[i].SourceNativeID == sourceNativeID {
			return &docs[i], nil
		}
	}
	return nil, nil
}

// loadCursor fetches the cursor for a unit, creating an empty one if none
// exists yet.
func (o *SyncOrchestrator) loadCursor(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) (*domain.SyncCursor, error) {
	cursor, err := o.cursors.Get(ctx, tenant, kind)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewSyncCursor(tenant, kind), nil
		}
		return nil, fmt.Errorf("get cursor for %s/%s: %w", tenant, kind, err)
	}
	return cursor, nil
}

// tryAcquire marks a unit in flight. Returns false if it already is.
func (o *SyncOrchestrator) tryAcquire(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, busy := o.inFlight[key]; busy {
		return false
	}
	o.inFlight[key] = struct{}{}
	return true
}

// release clears a unit's in-flight mark.
func (o *SyncOrchestrator) release(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, key)
}

// lockCursor returns the mutex serializing cursor read-modify-write
// cycles for one (tenant, source) pair.
func (o *SyncOrchestrator) lockCursor(tenant domain.TenantID, kind domain.SourceKind) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := sourceKey(tenant, kind)
	if mu, ok := o.cursorMu[key]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	o.cursorMu[key] = mu
	return mu
}

func (o *SyncOrchestrator) setStatus(tenant domain.TenantID, kind domain.SourceKind, s *driving.SyncStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status[sourceKey(tenant, kind)] = s
}

func (o *SyncOrchestrator) clearStatus(tenant domain.TenantID, kind domain.SourceKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.status, sourceKey(tenant, kind))
}

func (o *SyncOrchestrator) bumpStatus(tenant domain.TenantID, kind domain.SourceKind, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.status[sourceKey(tenant, kind)]; ok {
		s.ItemsProcessed++
		if failed {
			s.ErrorCount++
		}
	}
}

func unitKey(tenant domain.TenantID, kind domain.SourceKind, sourceNativeID string) string {
	return string(tenant) + "/" + string(kind) + "/" + sourceNativeID
}

func sourceKey(tenant domain.TenantID, kind domain.SourceKind) string {
	return string(tenant) + "/" + string(kind)
}
