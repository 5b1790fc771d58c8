package cli

import (
	"bytes"
	"context"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
)

// fakeAnswerer returns a canned grounded answer.
type fakeAnswerer struct {
	answer     *domain.Answer
	err        error
	lastTenant string
	lastQuery  string
}

func (f *fakeAnswerer) Answer(_ context.Context, tenantIdentifier, query string) (*domain.Answer, error) {
	f.lastTenant = tenantIdentifier
	f.lastQuery = query
	return f.answer, f.err
}

// fakeOrchestrator records reconciliation calls.
type fakeOrchestrator struct {
	report      *driving.SyncReport
	err         error
	sourceCalls []string
	manualCalls []string
}

func (f *fakeOrchestrator) HandleWebhook(context.Context, domain.WebhookEvent) (domain.ReconcileOutcome, error) {
	return domain.OutcomeIngested, f.err
}

func (f *fakeOrchestrator) ReconcileItem(context.Context, domain.TenantID, domain.SourceKind, string) (domain.ReconcileOutcome, error) {
	return domain.OutcomeIngested, f.err
}

func (f *fakeOrchestrator) ReconcileSource(_ context.Context, tenant domain.TenantID, kind domain.SourceKind) (*driving.SyncReport, error) {
	f.sourceCalls = append(f.sourceCalls, string(tenant)+"/"+string(kind))
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &driving.SyncReport{}, nil
}

func (f *fakeOrchestrator) IngestManual(_ context.Context, tenant domain.TenantID, sourceNativeID, _, _ string) error {
	f.manualCalls = append(f.manualCalls, string(tenant)+"/"+sourceNativeID)
	return f.err
}

func (f *fakeOrchestrator) Status(context.Context, domain.TenantID, domain.SourceKind) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{}, nil
}

// fakeDirectory serves a fixed tenant set.
type fakeDirectory struct {
	tenants []domain.Tenant
}

func (f *fakeDirectory) Get(_ context.Context, id domain.TenantID) (*domain.Tenant, error) {
	for _, t := range f.tenants {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrUnknownTenant
}

func (f *fakeDirectory) List(_ context.Context) ([]domain.Tenant, error) {
	return f.tenants, nil
}

// setupTestServices installs mock services and returns a cleanup func.
func setupTestServices() func() {
	answerer = &fakeAnswerer{answer: &domain.Answer{Text: "ok", Grounded: true}}
	syncOrchestrator = &fakeOrchestrator{}
	tenantDirectory = &fakeDirectory{tenants: []domain.Tenant{{
		ID:   "tn_acme",
		Slug: "acme",
		Connectors: map[domain.SourceKind]domain.ConnectorConfig{
			domain.SourceMeetingNotes: {
				Kind:     domain.SourceMeetingNotes,
				Endpoint: "https://notes.example.com/api",
			},
		},
	}}}

	return func() {
		answerer = nil
		syncOrchestrator = nil
		tenantDirectory = nil
	}
}

// execute runs the root command with args and captures output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
