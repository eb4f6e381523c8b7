// Package schemarefresh builds schema snapshots and swaps them in when the
// entity model set changes.
package schemarefresh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/graphql-go/graphql"

	"sqlmodel-graphql/internal/logging"
	"sqlmodel-graphql/internal/pipeline"
)

// Snapshot contains an immutable view of the current schema state.
type Snapshot struct {
	Schema      *graphql.Schema
	Handler     http.Handler
	SDL         string
	Types       int
	Source      string
	BuiltAt     time.Time
	Fingerprint string
}

// Config controls schema refresh behavior.
type Config struct {
	Pipeline    *pipeline.Pipeline
	Build       BuildOptions
	Logger      *logging.Logger
	MinInterval time.Duration
	MaxInterval time.Duration
}

// Manager maintains and refreshes schema snapshots.
type Manager struct {
	pipeline    *pipeline.Pipeline
	build       BuildOptions
	logger      *logging.Logger
	minInterval time.Duration
	maxInterval time.Duration
	active      atomic.Pointer[Snapshot]
	mu          sync.Mutex
	wg          sync.WaitGroup
}

// NewManager builds the initial schema snapshot and returns a manager.
// A failing initial build is returned as is: there is nothing to serve.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("schema refresh manager requires a pipeline")
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}

	minInterval := cfg.MinInterval
	maxInterval := cfg.MaxInterval
	if minInterval <= 0 {
		minInterval = 30 * time.Second
	}
	if maxInterval <= 0 {
		maxInterval = 5 * time.Minute
	}
	if maxInterval < minInterval {
		maxInterval = minInterval
	}

	componentLogger := cfg.Logger.WithFields(slog.String("component", "schema_refresh"))
	build := cfg.Build
	if build.Logger == nil {
		build.Logger = componentLogger.Logger
	}
	manager := &Manager{
		pipeline:    cfg.Pipeline,
		build:       build,
		logger:      componentLogger,
		minInterval: minInterval,
		maxInterval: maxInterval,
	}

	snapshot, err := BuildSnapshot(ctx, manager.pipeline, manager.build)
	if err != nil {
		return nil, err
	}
	manager.active.Store(snapshot)
	manager.logger.Info("schema snapshot built",
		slog.Int("types", snapshot.Types),
		slog.String("fingerprint", snapshot.Fingerprint),
	)
	return manager, nil
}

// Start begins the background refresh loop.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.refreshLoop(ctx)
	}()
}

// Handler returns the HTTP handler for the current schema snapshot.
func (m *Manager) Handler() http.Handler {
	snapshot := m.CurrentSnapshot()
	if snapshot == nil || snapshot.Handler == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
		})
	}
	return snapshot.Handler
}

// ServeHTTP serves requests with the snapshot active when the request arrives.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.Handler().ServeHTTP(w, r)
}

// CurrentSnapshot returns the active schema snapshot.
func (m *Manager) CurrentSnapshot() *Snapshot {
	return m.active.Load()
}

// RefreshNow forces a schema rebuild and swap.
func (m *Manager) RefreshNow() error {
	return m.RefreshNowContext(context.Background())
}

// RefreshNowContext forces a schema rebuild and swap with context support.
// The active snapshot is kept when the rebuild fails.
func (m *Manager) RefreshNowContext(ctx context.Context) error {
	_, err := m.rebuild(ctx, "manual")
	return err
}

// Wait blocks until the refresh loop exits or the context is canceled.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) refreshLoop(ctx context.Context) {
	interval := m.minInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("schema refresh stopped")
			return
		case <-timer.C:
			m.refreshOnce(ctx, &interval)
			timer.Reset(interval)
		}
	}
}

func (m *Manager) refreshOnce(ctx context.Context, interval *time.Duration) {
	changed, err := m.rebuild(ctx, "poll")
	switch {
	case err != nil:
		*interval = m.minInterval
	case changed:
		*interval = m.minInterval
	default:
		*interval = nextInterval(*interval, m.minInterval, m.maxInterval)
	}
}

// rebuild builds a fresh snapshot and swaps it in when its fingerprint
// differs from the active one. Concurrent rebuilds are serialized.
func (m *Manager) rebuild(ctx context.Context, trigger string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	snapshot, err := BuildSnapshot(ctx, m.pipeline, m.build)
	if err != nil {
		m.logger.Error("failed to rebuild schema, keeping current snapshot",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
		return false, err
	}

	current := m.CurrentSnapshot()
	if current != nil && current.Fingerprint == snapshot.Fingerprint {
		m.logger.Debug("schema unchanged", slog.String("trigger", trigger))
		return false, nil
	}

	m.active.Store(snapshot)
	m.logger.Info("schema refresh complete",
		slog.String("trigger", trigger),
		slog.Int("types", snapshot.Types),
		slog.String("fingerprint", snapshot.Fingerprint),
		slog.Duration("duration", time.Since(start)),
	)
	return true, nil
}

func nextInterval(current, minInterval, maxInterval time.Duration) time.Duration {
	if current < minInterval {
		return minInterval
	}
	next := current + current/2
	if next > maxInterval {
		return maxInterval
	}
	return next
}
