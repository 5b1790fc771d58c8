package services

import (
	"context"
	"sync"
	"time"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
	"github.com/answergrid/answergrid/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler defaults.
const (
	defaultPollInterval = 15 * time.Minute
	schedulerTick       = 30 * time.Second
)

// Scheduler periodically triggers full reconciliation passes for every
// configured (tenant, connector) pair. Per-connector poll intervals
// override the default; the tick only decides when a pass is due, the
// orchestrator decides what work it actually is.
type Scheduler struct {
	tenants      driven.TenantDirectory
	syncOrch     driving.SyncOrchestrator
	pollInterval time.Duration
	tick         time.Duration

	mu      sync.Mutex
	running bool
	nextRun map[string]time.Time
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// SchedulerOption configures the scheduler.
type SchedulerOption func(*Scheduler)

// WithPollInterval sets the default interval between full passes for
// connectors that do not declare their own.
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithTick sets how often the scheduler checks for due passes. Used by
// tests to keep runs fast.
func WithTick(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// NewScheduler creates a scheduler over all configured tenants.
func NewScheduler(tenants driven.TenantDirectory, syncOrch driving.SyncOrchestrator, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		tenants:      tenants,
		syncOrch:     syncOrch,
		pollInterval: defaultPollInterval,
		tick:         schedulerTick,
		nextRun:      make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start runs the scheduler loop. Blocks until Stop is called or the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// First pass runs immediately so a fresh process converges without
	// waiting out a full interval.
	s.runDuePasses(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.runDuePasses(ctx)
		}
	}
}

// Stop shuts the scheduler down and waits for in-flight passes.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// runDuePasses starts a pass for every (tenant, connector) whose next-run
// time has arrived.
func (s *Scheduler) runDuePasses(ctx context.Context) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		logger.Warn("scheduler: cannot list tenants: %v", err)
		return
	}

	now := time.Now()
	for i := range tenants {
		tenant := tenants[i]
		for kind, cfg := range tenant.Connectors {
			interval := s.pollInterval
			if cfg.PollInterval > 0 {
				interval = time.Duration(cfg.PollInterval) * time.Second
			}

			key := sourceKey(tenant.ID, kind)
			s.mu.Lock()
			next, seen := s.nextRun[key]
			due := !seen || !next.After(now)
			if due {
				s.nextRun[key] = now.Add(interval)
			}
			s.mu.Unlock()

			if due {
				s.runPass(ctx, tenant.ID, kind)
			}
		}
	}
}

// runPass executes one full reconciliation pass in the background.
func (s *Scheduler) runPass(ctx context.Context, tenant domain.TenantID, kind domain.SourceKind) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		report, err := s.syncOrch.ReconcileSource(ctx, tenant, kind)
		if err != nil {
			logger.Warn("scheduler: pass for %s/%s failed: %v", tenant, kind, err)
			return
		}
		if report.Failures > 0 {
			logger.Warn("scheduler: pass for %s/%s finished with %d item failures", tenant, kind, report.Failures)
		}
	}()
}
