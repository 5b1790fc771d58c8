package services

import (
	"context"
	"sync"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
)

// --- Shared mock implementations for service tests ---

// mockTenantDirectory implements driven.TenantDirectory over a fixed set.
type mockTenantDirectory struct {
	tenants map[domain.TenantID]domain.Tenant
}

var _ driven.TenantDirectory = (*mockTenantDirectory)(nil)

func newMockTenantDirectory(tenants ...domain.Tenant) *mockTenantDirectory {
	d := &mockTenantDirectory{tenants: make(map[domain.TenantID]domain.Tenant)}
	for _, t := range tenants {
		d.tenants[t.ID] = t
	}
	return d
}

func (d *mockTenantDirectory) Get(_ context.Context, id domain.TenantID) (*domain.Tenant, error) {
	t, ok := d.tenants[id]
	if !ok {
		return nil, domain.ErrUnknownTenant
	}
	return &t, nil
}

func (d *mockTenantDirectory) List(_ context.Context) ([]domain.Tenant, error) {
	out := make([]domain.Tenant, 0, len(d.tenants))
	for _, t := range d.tenants {
		out = append(out, t)
	}
	return out, nil
}

// mockEmbedder implements driven.EmbeddingService. Fixed vectors per
// text, with an optional fallback and failure injection.
type mockEmbedder struct {
	mu          sync.Mutex
	vectors     map[string][]float32
	fallbackVec []float32
	err         error
	failFor     map[string]error
	calls       int
	models      []string
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:     make(map[string][]float32),
		failFor:     make(map[string]error),
		fallbackVec: []float32{0, 0, 1},
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text, model string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.models = append(m.models, model)

	if m.err != nil {
		return nil, m.err
	}
	if err, ok := m.failFor[text]; ok {
		return nil, err
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return m.fallbackVec, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSourceClient implements driven.SourceClient over fixed content.
type mockSourceClient struct {
	mu         sync.Mutex
	items      map[string]domain.SourceContent
	listErr    error
	fetchErr   error
	fetchCalls int
	fetchGate  chan struct{}
}

var _ driven.SourceClient = (*mockSourceClient)(nil)

func newMockSourceClient() *mockSourceClient {
	return &mockSourceClient{items: make(map[string]domain.SourceContent)}
}

func (m *mockSourceClient) put(id string, content domain.SourceContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = content
}

func (m *mockSourceClient) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
}

func (m *mockSourceClient) FetchItem(ctx context.Context, _ domain.ConnectorConfig, sourceNativeID string) (*domain.SourceContent, error) {
	m.mu.Lock()
	m.fetchCalls++
	gate := m.fetchGate
	err := m.fetchErr
	content, ok := m.items[sourceNativeID]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSourceItemNotFound
	}
	return &content, nil
}

func (m *mockSourceClient) ListItems(_ context.Context, _ domain.ConnectorConfig) ([]domain.SourceItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	items := make([]domain.SourceItem, 0, len(m.items))
	for id, content := range m.items {
		items = append(items, domain.SourceItem{SourceNativeID: id, Version: content.Version})
	}
	return items, nil
}

func (m *mockSourceClient) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

// mockGenerator implements driven.GenerationService.
type mockGenerator struct {
	mu           sync.Mutex
	result       *driven.GenerationResult
	err          error
	lastQuery    string
	lastPassages []domain.RankedChunk
	lastModel    string
}

var _ driven.GenerationService = (*mockGenerator)(nil)

func (m *mockGenerator) Generate(_ context.Context, query string, passages []domain.RankedChunk, model string) (*driven.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = query
	m.lastPassages = passages
	m.lastModel = model
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &driven.GenerationResult{Text: "generated answer", TokenCount: 42}, nil
}

// testTenant builds a tenant with a meeting-notes connector configured.
func testTenant(id domain.TenantID) domain.Tenant {
	return domain.Tenant{
		ID:   id,
		Slug: "tenant-" + string(id),
		Connectors: map[domain.SourceKind]domain.ConnectorConfig{
			domain.SourceMeetingNotes: {
				Kind:     domain.SourceMeetingNotes,
				Endpoint: "https://source.example.com/api",
				APIKey:   "key",
			},
		},
	}
}
