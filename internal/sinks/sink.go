// Package sinks provides publish destinations for finished archives.
package sinks

import (
	"context"
	"io"
)

// Sink receives a finished archive under a destination-relative name.
type Sink interface {
	// Name returns a human-readable description of the destination.
	Name() string

	// Kind returns the sink type identifier.
	Kind() string

	// Write stores the data under the given name.
	Write(ctx context.Context, name string, data io.Reader) error

	// Close releases any resources held by the sink.
	Close(ctx context.Context) error
}
