// Package ops executes archive operations against the engine without
// blocking the issuing control flow: a counting semaphore bounds
// simultaneous heavy work, every running operation is cancellable, and
// lifecycle events stream through the application event bus.
package ops

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/rolypoly/rolypoly/internal/app"
	"github.com/rolypoly/rolypoly/internal/archive"
)

// DefaultMaxConcurrent bounds simultaneously running operations.
const DefaultMaxConcurrent = 3

// ArchiveEngine is the blocking archive backend operations run against.
// *archive.Engine satisfies it.
type ArchiveEngine interface {
	Create(ctx context.Context, output string, inputs []string, progress archive.ProgressFunc) error
	Extract(ctx context.Context, archivePath, outputDir string, progress archive.ProgressFunc) error
	Validate(ctx context.Context, archivePath string, progress archive.ProgressFunc) error
	Hash(ctx context.Context, filePath string, progress archive.ProgressFunc) (string, error)
}

// Manager admits, runs and cancels operations. All methods are safe
// for concurrent use.
type Manager struct {
	engine ArchiveEngine
	states *app.Manager
	sem    *semaphore.Weighted
	logger *zap.Logger

	mu     sync.Mutex
	active map[uint64]context.CancelFunc
	nextID uint64
}

// NewManager creates a manager with the given concurrency bound. A
// non-positive bound uses DefaultMaxConcurrent.
func NewManager(logger *zap.Logger, engine ArchiveEngine, states *app.Manager, maxConcurrent int64) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Manager{
		engine: engine,
		states: states,
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger,
		active: make(map[uint64]context.CancelFunc),
	}
}

// ExecuteOperation blocks until a permit is available, runs the
// operation on its own worker goroutine, and returns its typed result.
// The permit is released when the operation ends, regardless of
// outcome. Lifecycle events OperationStarted, OperationProgress and
// OperationCompleted/OperationFailed are published along the way.
func (m *Manager) ExecuteOperation(ctx context.Context, op app.Operation) (app.OperationResult, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("cancelled while waiting for an operation permit: %w", archive.ErrCancelled)
	}
	defer m.sem.Release(1)

	opCtx, cancel := context.WithCancel(ctx)
	id := m.register(cancel)
	defer m.deregister(id)

	m.states.Emit(app.OperationStarted{Operation: op})
	m.logger.Debug("operation started",
		zap.Uint64("op_id", id),
		zap.String("operation", op.Describe()))

	result, err := m.runOnWorker(opCtx, op)
	if err != nil {
		m.states.Emit(app.OperationFailed{Operation: op, Message: err.Error()})
		m.logger.Debug("operation failed",
			zap.Uint64("op_id", id),
			zap.Error(err))
		return nil, err
	}

	m.states.Emit(app.OperationCompleted{Operation: op, Result: result})
	m.logger.Debug("operation completed", zap.Uint64("op_id", id))
	return result, nil
}

// CancelAll requests cancellation of every outstanding operation.
// Cancellation is cooperative: each worker aborts at its next check
// between progress increments, and side effects already performed are
// not undone.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cancel := range m.active {
		cancel()
	}
}

// ActiveCount returns the number of operations currently holding a
// permit.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) register(cancel context.CancelFunc) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.active[id] = cancel
	return id
}

func (m *Manager) deregister(id uint64) {
	m.mu.Lock()
	cancel := m.active[id]
	delete(m.active, id)
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// runOnWorker off-loads the blocking engine call so the coordinating
// goroutine stays responsive, converting a worker panic into an
// internal error instead of letting it escape.
func (m *Manager) runOnWorker(ctx context.Context, op app.Operation) (app.OperationResult, error) {
	type outcome struct {
		result app.OperationResult
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("operation worker panicked: %v: %w", r, archive.ErrInternal)}
			}
		}()
		result, err := m.invoke(ctx, op)
		done <- outcome{result: result, err: err}
	}()

	out := <-done
	return out.result, out.err
}

// invoke dispatches one operation variant to the engine, forwarding
// engine progress as OperationProgress events.
func (m *Manager) invoke(ctx context.Context, op app.Operation) (app.OperationResult, error) {
	progress := func(current, total int64, fraction float64, label string) {
		m.states.Emit(app.OperationProgress{Operation: op, Fraction: fraction})
	}

	switch op := op.(type) {
	case app.CreateArchive:
		if err := m.engine.Create(ctx, op.Output, op.Files, progress); err != nil {
			return nil, err
		}
		return app.ArchiveCreated{Path: op.Output}, nil

	case app.ExtractArchive:
		if err := m.engine.Extract(ctx, op.Archive, op.Output, progress); err != nil {
			return nil, err
		}
		return app.ArchiveExtracted{Path: op.Output}, nil

	case app.ValidateArchive:
		if err := m.engine.Validate(ctx, op.Archive, progress); err != nil {
			return nil, err
		}
		return app.ArchiveValidated{Valid: true}, nil

	case app.CalculateHash:
		digest, err := m.engine.Hash(ctx, op.File, progress)
		if err != nil {
			return nil, err
		}
		return app.HashCalculated{Digest: digest}, nil

	default:
		return nil, fmt.Errorf("unknown operation %T: %w", op, archive.ErrInputValidation)
	}
}
