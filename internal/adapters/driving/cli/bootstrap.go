package cli

import (
	"fmt"

	"github.com/answergrid/answergrid/internal/adapters/driven/ai/openai"
	"github.com/answergrid/answergrid/internal/adapters/driven/source/httpapi"
	"github.com/answergrid/answergrid/internal/adapters/driven/storage/memory"
	"github.com/answergrid/answergrid/internal/adapters/driven/storage/sqlite"
	"github.com/answergrid/answergrid/internal/config"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
	"github.com/answergrid/answergrid/internal/core/services"
)

// app is the wired service graph behind the commands.
type app struct {
	cfg       *config.Config
	directory *config.Directory
	resolver  *services.TenantResolver
	scheduler *services.Scheduler

	closers []func() error
}

// Close releases held resources, last acquired first.
func (a *app) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ensureServices wires the real service graph from the config file. Tests
// inject mocks into the package-level vars instead, which skips the
// bootstrap entirely.
func ensureServices() (*app, error) {
	if answerer != nil && syncOrchestrator != nil && tenantDirectory != nil {
		return &app{}, nil
	}

	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	a.directory = config.NewDirectory(cfg)
	a.resolver = services.NewTenantResolver(cfg.BuildRoutingTable(1), cfg.Resolver.DemoMode)

	var docStore driven.DocumentStore
	var cursorStore driven.SyncCursorStore
	switch cfg.Storage.Backend {
	case "memory":
		docStore = memory.NewDocumentStore()
		cursorStore = memory.NewSyncCursorStore()
	default:
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		docStore = store.DocumentStore()
		cursorStore = store.SyncCursorStore()
	}

	aiConfig := openai.Config{
		APIKey:            cfg.OpenAIKey(),
		BaseURL:           cfg.OpenAI.BaseURL,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
	}
	embedder, err := openai.NewEmbeddingService(aiConfig)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	generator, err := openai.NewGenerationService(aiConfig)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, fmt.Errorf("creating generation service: %w", err)
	}

	pipeline := services.NewPipeline(embedder)
	retriever := services.NewRetriever(docStore, embedder, a.directory)

	answerer = services.NewAnswerer(a.resolver, retriever, generator, a.directory)
	syncOrchestrator = services.NewSyncOrchestrator(
		a.directory, docStore, cursorStore, httpapi.NewClient(), pipeline,
		services.WithTenantResolver(a.resolver))
	tenantDirectory = a.directory
	a.scheduler = services.NewScheduler(a.directory, syncOrchestrator)

	return a, nil
}
