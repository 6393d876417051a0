// internal/shutdown/manager.go
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout bounds the whole cleanup pass.
const DefaultTimeout = 30 * time.Second

// CleanupResource represents a resource that needs cleanup during shutdown
type CleanupResource interface {
	Cleanup() error
	Description() string
}

// funcResource adapts a function to CleanupResource.
type funcResource struct {
	fn          func() error
	description string
}

func (r *funcResource) Cleanup() error      { return r.fn() }
func (r *funcResource) Description() string { return r.description }

// Func wraps fn as a CleanupResource.
func Func(description string, fn func() error) CleanupResource {
	return &funcResource{fn: fn, description: description}
}

// Manager owns the process lifetime: it turns SIGINT/SIGTERM into context
// cancellation and releases registered resources exactly once, newest first.
type Manager struct {
	resources    []CleanupResource
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	isShutdown   bool
	signals      chan os.Signal
	logger       *slog.Logger
	timeout      time.Duration
}

// NewManager creates a manager derived from parent. With watchSignals the
// manager shuts down on SIGINT, SIGTERM or SIGQUIT.
func NewManager(parent context.Context, logger *slog.Logger, watchSignals bool) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)

	m := &Manager{
		resources: make([]CleanupResource, 0),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		timeout:   DefaultTimeout,
	}

	if watchSignals {
		m.signals = make(chan os.Signal, 1)
		signal.Notify(m.signals,
			syscall.SIGINT,  // Ctrl+C
			syscall.SIGTERM, // Termination request
			syscall.SIGQUIT, // Quit request
		)
		go m.signalHandler()
	}

	return m
}

// signalHandler handles incoming shutdown signals
func (m *Manager) signalHandler() {
	select {
	case sig := <-m.signals:
		m.logger.Info("Received signal, initiating graceful shutdown", slog.String("signal", sig.String()))
		m.cancel()
	case <-m.ctx.Done():
		return
	}
}

// Register adds a resource. After shutdown it is cleaned immediately.
func (m *Manager) Register(resource CleanupResource) {
	if resource == nil {
		return
	}

	m.mu.Lock()
	if m.isShutdown {
		m.mu.Unlock()
		m.cleanupOne(resource)
		return
	}
	m.resources = append(m.resources, resource)
	m.mu.Unlock()
}

// RegisterFunc is Register(Func(description, fn)).
func (m *Manager) RegisterFunc(description string, fn func() error) {
	m.Register(Func(description, fn))
}

// Shutdown cancels the context and cleans up every resource once, in
// reverse registration order. It returns the cleanup errors, joined.
func (m *Manager) Shutdown() error {
	var result error
	m.shutdownOnce.Do(func() {
		m.mu.Lock()
		m.isShutdown = true
		resources := make([]CleanupResource, len(m.resources))
		copy(resources, m.resources)
		m.resources = m.resources[:0]
		m.mu.Unlock()

		m.cancel()
		if m.signals != nil {
			signal.Stop(m.signals)
		}

		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), m.timeout)
		defer cleanupCancel()
		result = m.cleanupResources(cleanupCtx, resources)
	})
	return result
}

// cleanupResources runs cleanups newest first until ctx expires.
func (m *Manager) cleanupResources(ctx context.Context, resources []CleanupResource) error {
	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			m.logger.Warn("Cleanup timeout reached", slog.Int("skipped", i+1))
			return errors.Join(append(errs, fmt.Errorf("cleanup timeout, %d resources skipped", i+1))...)
		default:
		}
		if err := m.cleanupOne(resources[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) cleanupOne(resource CleanupResource) error {
	if err := resource.Cleanup(); err != nil {
		err = fmt.Errorf("failed to cleanup %s: %w", resource.Description(), err)
		m.logger.Error("Cleanup error", slog.String("error", err.Error()))
		return err
	}
	m.logger.Debug("Resource cleaned up", slog.String("resource", resource.Description()))
	return nil
}

// GetResourceCount returns the number of registered resources
func (m *Manager) GetResourceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.resources)
}

// IsShutdown returns true if shutdown has been initiated
func (m *Manager) IsShutdown() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isShutdown
}

// Context is cancelled on signal or Shutdown.
func (m *Manager) Context() context.Context {
	return m.ctx
}
