package ops

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rolypoly/rolypoly/internal/app"
	"github.com/rolypoly/rolypoly/internal/archive"
)

// blockingEngine parks every operation until release is closed or the
// operation context is cancelled.
type blockingEngine struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingEngine() *blockingEngine {
	return &blockingEngine{
		started: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
}

func (e *blockingEngine) wait(ctx context.Context) error {
	e.started <- struct{}{}
	select {
	case <-ctx.Done():
		return archive.ErrCancelled
	case <-e.release:
		return nil
	}
}

func (e *blockingEngine) Create(ctx context.Context, _ string, _ []string, _ archive.ProgressFunc) error {
	return e.wait(ctx)
}

func (e *blockingEngine) Extract(ctx context.Context, _, _ string, _ archive.ProgressFunc) error {
	return e.wait(ctx)
}

func (e *blockingEngine) Validate(ctx context.Context, _ string, _ archive.ProgressFunc) error {
	return e.wait(ctx)
}

func (e *blockingEngine) Hash(ctx context.Context, _ string, _ archive.ProgressFunc) (string, error) {
	if err := e.wait(ctx); err != nil {
		return "", err
	}
	return "digest", nil
}

// progressEngine reports two progress steps and succeeds.
type progressEngine struct{}

func (progressEngine) Create(_ context.Context, _ string, _ []string, progress archive.ProgressFunc) error {
	progress(1, 2, 0.5, "a.txt")
	progress(2, 2, 1.0, "b.txt")
	return nil
}

func (progressEngine) Extract(_ context.Context, _, _ string, _ archive.ProgressFunc) error {
	return nil
}

func (progressEngine) Validate(_ context.Context, _ string, _ archive.ProgressFunc) error {
	return nil
}

func (progressEngine) Hash(_ context.Context, _ string, _ archive.ProgressFunc) (string, error) {
	return "digest", nil
}

// panickyEngine faults on every operation.
type panickyEngine struct{}

func (panickyEngine) Create(_ context.Context, _ string, _ []string, _ archive.ProgressFunc) error {
	panic("worker fault")
}

func (panickyEngine) Extract(_ context.Context, _, _ string, _ archive.ProgressFunc) error {
	panic("worker fault")
}

func (panickyEngine) Validate(_ context.Context, _ string, _ archive.ProgressFunc) error {
	panic("worker fault")
}

func (panickyEngine) Hash(_ context.Context, _ string, _ archive.ProgressFunc) (string, error) {
	panic("worker fault")
}

func newTestStack(engine ArchiveEngine, maxConcurrent int64) (*Manager, *app.Manager) {
	states := app.NewManager(zap.NewNop(), app.DefaultSubscriberBuffer)
	return NewManager(zap.NewNop(), engine, states, maxConcurrent), states
}

func TestManager_ConcurrencyBound(t *testing.T) {
	engine := newBlockingEngine()
	manager, _ := newTestStack(engine, 2)

	const launched = 5
	var wg sync.WaitGroup
	for i := 0; i < launched; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.ExecuteOperation(t.Context(), app.ValidateArchive{Archive: "test.zip"})
			assert.NoError(t, err)
		}()
	}

	// Exactly two operations get permits; the rest wait.
	require.Eventually(t, func() bool {
		return manager.ActiveCount() == 2
	}, time.Second, time.Millisecond)

	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, manager.ActiveCount(), 2)
		time.Sleep(time.Millisecond)
	}

	close(engine.release)
	wg.Wait()
	assert.Equal(t, 0, manager.ActiveCount())
}

func TestManager_CancelAll(t *testing.T) {
	engine := newBlockingEngine()
	manager, states := newTestStack(engine, DefaultMaxConcurrent)

	require.NoError(t, states.TransitionTo(app.StateArchiveLoaded{Path: "test.zip"}))
	op := app.ExtractArchive{Archive: "test.zip", Output: "dest"}
	require.NoError(t, states.TransitionTo(app.StateProcessing{Operation: op}))

	sub := states.Subscribe()
	defer sub.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := manager.ExecuteOperation(t.Context(), op)
		errCh <- err
	}()

	<-engine.started
	require.Equal(t, 1, manager.ActiveCount())

	manager.CancelAll()

	err := <-errCh
	require.ErrorIs(t, err, archive.ErrCancelled)
	assert.Equal(t, 0, manager.ActiveCount())

	// The failure reaches subscribers.
	var failed bool
	for !failed {
		select {
		case event := <-sub.Events():
			if f, ok := event.(app.OperationFailed); ok {
				assert.True(t, f.Operation.Equal(op))
				failed = true
			}
		case <-time.After(time.Second):
			t.Fatal("no OperationFailed event received")
		}
	}

	// The state machine still accepts a transition out of Processing.
	require.NoError(t, states.TransitionTo(app.StateError{Message: err.Error()}))
	require.NoError(t, states.TransitionTo(app.StateEmpty{}))
}

func TestManager_LifecycleEventOrder(t *testing.T) {
	manager, states := newTestStack(progressEngine{}, DefaultMaxConcurrent)
	sub := states.Subscribe()
	defer sub.Close()

	op := app.CreateArchive{Output: "out.zip", Files: []string{"a.txt", "b.txt"}}
	result, err := manager.ExecuteOperation(t.Context(), op)
	require.NoError(t, err)
	assert.Equal(t, app.ArchiveCreated{Path: "out.zip"}, result)

	var got []app.Event
	for i := 0; i < 4; i++ {
		got = append(got, <-sub.Events())
	}

	_, ok := got[0].(app.OperationStarted)
	require.True(t, ok, "expected OperationStarted first, got %T", got[0])

	first, ok := got[1].(app.OperationProgress)
	require.True(t, ok, "expected OperationProgress, got %T", got[1])
	assert.Equal(t, 0.5, first.Fraction)

	second, ok := got[2].(app.OperationProgress)
	require.True(t, ok, "expected OperationProgress, got %T", got[2])
	assert.Equal(t, 1.0, second.Fraction)

	completed, ok := got[3].(app.OperationCompleted)
	require.True(t, ok, "expected OperationCompleted last, got %T", got[3])
	assert.Equal(t, app.ArchiveCreated{Path: "out.zip"}, completed.Result)
}

func TestManager_WorkerPanicBecomesInternalError(t *testing.T) {
	manager, states := newTestStack(panickyEngine{}, DefaultMaxConcurrent)
	sub := states.Subscribe()
	defer sub.Close()

	_, err := manager.ExecuteOperation(t.Context(), app.ValidateArchive{Archive: "test.zip"})
	require.ErrorIs(t, err, archive.ErrInternal)
	assert.Contains(t, err.Error(), "worker fault")

	// The permit was released despite the fault.
	assert.Equal(t, 0, manager.ActiveCount())
	_, err = manager.ExecuteOperation(t.Context(), app.ValidateArchive{Archive: "test.zip"})
	require.ErrorIs(t, err, archive.ErrInternal)
}

func TestManager_AcquireCancelledWhileWaiting(t *testing.T) {
	engine := newBlockingEngine()
	manager, _ := newTestStack(engine, 1)

	// Occupy the only permit.
	go func() {
		_, _ = manager.ExecuteOperation(context.Background(), app.ValidateArchive{Archive: "test.zip"})
	}()
	<-engine.started

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := manager.ExecuteOperation(ctx, app.ValidateArchive{Archive: "other.zip"})
	require.ErrorIs(t, err, archive.ErrCancelled)

	close(engine.release)
}

func TestManager_ResultMapping(t *testing.T) {
	manager, _ := newTestStack(progressEngine{}, DefaultMaxConcurrent)

	cases := []struct {
		name string
		op   app.Operation
		want app.OperationResult
	}{
		{"create", app.CreateArchive{Output: "out.zip"}, app.ArchiveCreated{Path: "out.zip"}},
		{"extract", app.ExtractArchive{Archive: "out.zip", Output: "dest"}, app.ArchiveExtracted{Path: "dest"}},
		{"validate", app.ValidateArchive{Archive: "out.zip"}, app.ArchiveValidated{Valid: true}},
		{"hash", app.CalculateHash{File: "a.txt"}, app.HashCalculated{Digest: "digest"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := manager.ExecuteOperation(t.Context(), tc.op)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestManager_HashWithRealEngine(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "test.txt", []byte("Hello, World!"), 0o644))
	engine := archive.NewWithFs(zap.NewNop(), archive.DefaultOptions(), fs)

	manager, _ := newTestStack(engine, DefaultMaxConcurrent)

	result, err := manager.ExecuteOperation(t.Context(), app.CalculateHash{File: "test.txt"})
	require.NoError(t, err)

	hashed, ok := result.(app.HashCalculated)
	require.True(t, ok, "expected HashCalculated, got %T", result)
	assert.Len(t, hashed.Digest, 64)
	assert.Equal(t, "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f", hashed.Digest)
}
