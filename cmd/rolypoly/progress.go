package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// outputMode selects how progress and results are rendered. It is an
// explicit value threaded through the context from the CLI boundary;
// nothing below cmd reads process-global rendering state.
type outputMode struct {
	// JSON emits machine-readable event lines on stdout.
	JSON bool

	// Progress renders a human progress line on stderr.
	Progress bool
}

type outputModeCtxKeyType struct{}

var outputModeCtxKey = outputModeCtxKeyType{}

func withOutputMode(ctx context.Context, mode outputMode) context.Context {
	return context.WithValue(ctx, outputModeCtxKey, mode)
}

func getOutputMode(ctx context.Context) outputMode {
	mode, ok := ctx.Value(outputModeCtxKey).(outputMode)
	if !ok {
		return outputMode{}
	}
	return mode
}

// emitJSON writes one JSON event line to stdout when JSON mode is on.
func emitJSON(mode outputMode, payload map[string]any) {
	if !mode.JSON {
		return
	}
	line, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintln(os.Stdout, string(line))
}

// renderProgressLine overwrites a single human progress line on stderr.
func renderProgressLine(mode outputMode, op string, fraction float64) {
	if !mode.Progress {
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s %3.0f%%", op, fraction*100)
}

// finishProgressLine terminates the in-place progress line.
func finishProgressLine(mode outputMode) {
	if !mode.Progress {
		return
	}
	fmt.Fprint(os.Stderr, "\n")
}
