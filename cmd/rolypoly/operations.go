package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	v1 "github.com/rolypoly/rolypoly/apis/v1"
	"github.com/rolypoly/rolypoly/internal/app"
	"github.com/rolypoly/rolypoly/internal/archive"
	"github.com/rolypoly/rolypoly/internal/ops"
	"github.com/rolypoly/rolypoly/internal/profile"
)

// coordinator bundles the stack the CLI drives: archive engine,
// application state manager and operation manager.
type coordinator struct {
	engine  *archive.Engine
	states  *app.Manager
	manager *ops.Manager
	publish func(ctx context.Context) error
	opts    archive.Options
}

// buildCoordinator assembles the stack from defaults, an optional
// profile file, and per-command flag overrides.
func buildCoordinator(ctx context.Context, command *cli.Command, output string) (*coordinator, error) {
	logger := getLogger(ctx)

	opts := archive.DefaultOptions()
	maxOps := int64(ops.DefaultMaxConcurrent)
	eventBuffer := app.DefaultSubscriberBuffer
	var prof v1.ArchiveProfile
	hasProfile := false

	if profilePath := command.String("profile"); profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile %s: %w", profilePath, err)
		}
		prof, err = profile.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("invalid profile %s: %w", profilePath, err)
		}
		opts = profile.BuildOptions(prof)
		maxOps = profile.MaxOperations(prof, maxOps)
		eventBuffer = profile.EventBuffer(prof, eventBuffer)
		hasProfile = true
		logger.Debug("profile loaded", zap.String("profile", prof.Metadata.Name))
	}

	if command.IsSet("level") {
		level := int(command.Int("level"))
		opts.CompressionLevel = &level
	}
	if command.Bool("no-auto-store") {
		opts.AutoStore = false
	}

	engine := archive.New(logger.Named("engine"), opts)
	states := app.NewManager(logger.Named("app"), eventBuffer)
	manager := ops.NewManager(logger.Named("ops"), engine, states, maxOps)

	c := &coordinator{
		engine:  engine,
		states:  states,
		manager: manager,
		opts:    opts,
	}

	if hasProfile && output != "" {
		c.publish = func(ctx context.Context) error {
			return publishArchive(ctx, logger, prof, output)
		}
	}

	return c, nil
}

// run drives one operation through the full coordinator: transition to
// processing, render lifecycle events from the bus, execute, and
// transition back out.
func (c *coordinator) run(ctx context.Context, mode outputMode, op app.Operation) (app.OperationResult, error) {
	if err := c.states.TransitionTo(app.StateProcessing{Operation: op}); err != nil {
		return nil, err
	}

	sub := c.states.Subscribe()
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for event := range sub.Events() {
			renderEvent(mode, op, event)
		}
	}()

	result, err := c.manager.ExecuteOperation(ctx, op)

	sub.Close()
	<-rendered
	finishProgressLine(mode)

	if err != nil {
		// Processing -> Error is always a legal transition; keep the
		// failure message queryable for front ends.
		c.states.SetState(app.StateError{Message: err.Error()})
		return nil, err
	}

	c.states.SetState(app.StateEmpty{})
	return result, nil
}

// renderEvent maps one bus event to the selected output mode.
func renderEvent(mode outputMode, op app.Operation, event app.Event) {
	switch event := event.(type) {
	case app.OperationStarted:
		emitJSON(mode, map[string]any{"event": "start", "op": event.Operation.Describe()})
	case app.OperationProgress:
		emitJSON(mode, map[string]any{"event": "progress", "op": event.Operation.Describe(), "pct": event.Fraction})
		renderProgressLine(mode, op.Describe(), event.Fraction)
	case app.OperationCompleted:
		emitJSON(mode, map[string]any{"event": "done", "op": event.Operation.Describe()})
	case app.OperationFailed:
		emitJSON(mode, map[string]any{"event": "failed", "op": event.Operation.Describe(), "message": event.Message})
	}
}

// publishArchive copies a finished archive to the profile's publish
// destination, when one is configured.
func publishArchive(ctx context.Context, logger *zap.Logger, prof v1.ArchiveProfile, archivePath string) (err error) {
	sink, err := profile.BuildSink(ctx, prof)
	if err != nil {
		return err
	}
	if sink == nil {
		return nil
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive for publishing: %w", err)
	}
	defer f.Close()

	name := filepath.Base(archivePath)
	if err := sink.Write(ctx, name, f); err != nil {
		return fmt.Errorf("failed to publish archive to %s: %w", sink.Name(), err)
	}
	if err := sink.Close(ctx); err != nil {
		return fmt.Errorf("failed to close publish sink: %w", err)
	}

	logger.Info("archive published",
		zap.String("archive", archivePath),
		zap.String("destination", sink.Name()))
	return nil
}
