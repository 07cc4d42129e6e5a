package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FilesystemSink copies archives into a directory tree.
type FilesystemSink struct {
	fs afero.Fs
}

// NewFilesystemSink creates a sink over the given filesystem.
func NewFilesystemSink(fs afero.Fs) *FilesystemSink {
	return &FilesystemSink{fs: fs}
}

// NewFilesystemSinkFromPath creates the directory at path and returns
// a sink rooted there.
func NewFilesystemSinkFromPath(path string) (*FilesystemSink, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(cleanPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create publish directory %s: %w", cleanPath, err)
	}
	return NewFilesystemSink(afero.NewBasePathFs(afero.NewOsFs(), cleanPath)), nil
}

func (s *FilesystemSink) Name() string {
	return fmt.Sprintf("filesystem(%s)", s.fs.Name())
}

func (s *FilesystemSink) Kind() string {
	return "filesystem"
}

// Write stores data under name, going through a temporary file so a
// failed publish never leaves a partial archive at the final name.
func (s *FilesystemSink) Write(ctx context.Context, name string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	dir := filepath.Dir(name)
	if dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tmp := name + ".partial"
	if err := s.writeFile(tmp, data); err != nil {
		return err
	}

	if err := s.fs.Rename(tmp, name); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", tmp, err)
	}
	return nil
}

func (s *FilesystemSink) writeFile(name string, data io.Reader) (err error) {
	f, err := s.fs.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if _, err = io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

func (s *FilesystemSink) Close(ctx context.Context) error {
	return nil
}
