// Package archive implements the zip archive engine: create, extract,
// list, validate, stats and hash operations with traversal-safe
// extraction and an entropy-driven store-vs-deflate policy.
package archive

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Entry is a read-only view of one record inside an archive.
type Entry struct {
	Name             string `json:"name"`
	IsDir            bool   `json:"is_dir"`
	UncompressedSize uint64 `json:"uncompressed_size"`
	CompressedSize   uint64 `json:"compressed_size"`
}

// Stats aggregates per-archive counts and sizes. CompressionRatio is a
// percentage, 0 when the uncompressed total is 0.
type Stats struct {
	FileCount             int     `json:"file_count"`
	DirCount              int     `json:"dir_count"`
	TotalUncompressedSize uint64  `json:"total_uncompressed_size"`
	TotalCompressedSize   uint64  `json:"total_compressed_size"`
	CompressionRatio      float64 `json:"compression_ratio"`
}

// Engine performs archive operations against a filesystem. All methods
// are safe for concurrent use; the engine holds no mutable state beyond
// its immutable options.
type Engine struct {
	opts   Options
	fs     afero.Fs
	logger *zap.Logger
}

// New creates an engine over the OS filesystem.
func New(logger *zap.Logger, opts Options) *Engine {
	return NewWithFs(logger, opts, afero.NewOsFs())
}

// NewWithFs creates an engine over the given filesystem.
func NewWithFs(logger *zap.Logger, opts Options, filesystem afero.Fs) *Engine {
	if opts.IOBufferSize <= 0 {
		opts.IOBufferSize = DefaultIOBufferSize
	}
	if opts.StoreEntropyThreshold <= 0 {
		opts.StoreEntropyThreshold = DefaultStoreEntropyThreshold
	}
	return &Engine{opts: opts, fs: filesystem, logger: logger}
}

// Create writes a new archive at output containing the given inputs.
// Directories are walked recursively and keep their own base name as
// the root of their entries. Files are streamed through a bounded
// buffer. A failed create leaves a partially written, unusable output
// file behind; callers must clean it up themselves.
func (e *Engine) Create(ctx context.Context, output string, inputs []string, progress ProgressFunc) (err error) {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files given: %w", ErrInputValidation)
	}

	total, err := e.countFiles(inputs)
	if err != nil {
		return err
	}

	out, err := e.fs.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", output, wrap(ErrIO, err))
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	zw := zip.NewWriter(out)
	level := flate.DefaultCompression
	if e.opts.CompressionLevel != nil {
		level = *e.opts.CompressionLevel
	}
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	buf := make([]byte, e.opts.IOBufferSize)
	var processed int64
	for _, input := range inputs {
		info, err := e.fs.Stat(input)
		if err != nil {
			return fmt.Errorf("input does not exist: %s: %w", input, ErrNotFound)
		}
		if info.IsDir() {
			err = e.addDir(ctx, zw, input, &processed, total, progress, buf)
		} else {
			err = e.addFile(ctx, zw, filepath.Base(input), input, &processed, total, progress, buf)
		}
		if err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive %s: %w", output, wrap(ErrCodec, err))
	}

	e.logger.Debug("archive created",
		zap.String("output", output),
		zap.Int64("files", total))
	return nil
}

// countFiles walks the inputs and returns the number of regular files
// the archive will contain, failing with ErrNotFound for a missing
// top-level input.
func (e *Engine) countFiles(inputs []string) (int64, error) {
	var total int64
	for _, input := range inputs {
		info, err := e.fs.Stat(input)
		if err != nil {
			return 0, fmt.Errorf("input does not exist: %s: %w", input, ErrNotFound)
		}
		if !info.IsDir() {
			total++
			continue
		}
		err = afero.Walk(e.fs, input, func(_ string, fi os.FileInfo, err error) error {
			if err != nil {
				return wrap(ErrIO, err)
			}
			if fi.Mode().IsRegular() {
				total++
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("failed to walk %s: %w", input, err)
		}
	}
	return total, nil
}

// addDir walks dir and adds every file and subdirectory under an entry
// root named after the directory itself.
func (e *Engine) addDir(ctx context.Context, zw *zip.Writer, dir string, processed *int64, total int64, progress ProgressFunc, buf []byte) error {
	base := filepath.Base(filepath.Clean(dir))

	return afero.Walk(e.fs, dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return wrap(ErrIO, err)
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return wrap(ErrIO, err)
		}
		if rel == "." {
			return nil
		}
		entryName := path.Join(base, filepath.ToSlash(rel))

		switch {
		case fi.IsDir():
			if _, err := zw.Create(entryName + "/"); err != nil {
				return fmt.Errorf("failed to add directory entry %s: %w", entryName, wrap(ErrCodec, err))
			}
			return nil
		case fi.Mode().IsRegular():
			return e.addFile(ctx, zw, entryName, p, processed, total, progress, buf)
		default:
			// Sockets, devices and symlinks are skipped rather than
			// archived as dangling content.
			e.logger.Debug("skipping irregular file", zap.String("path", p))
			return nil
		}
	})
}

// addFile streams one regular file into the archive, choosing store or
// deflate via the entropy heuristic when AutoStore is enabled.
func (e *Engine) addFile(ctx context.Context, zw *zip.Writer, entryName, filePath string, processed *int64, total int64, progress ProgressFunc, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before adding %s: %w", entryName, ErrCancelled)
	}

	method := uint16(zip.Deflate)
	if e.opts.AutoStore {
		dense, err := incompressible(e.fs, filePath, e.opts.StoreEntropyThreshold)
		if err != nil {
			return err
		}
		if dense {
			method = zip.Store
		}
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entryName,
		Method:   method,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to start entry %s: %w", entryName, wrap(ErrCodec, err))
	}

	f, err := e.fs.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, wrap(ErrIO, err))
	}
	defer f.Close()

	if _, err := copyBuffered(w, f, buf); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", entryName, wrap(ErrIO, err))
	}

	*processed++
	progress.report(*processed, total, entryName)
	return nil
}

// Extract unpacks the archive into outputDir. Every entry name is
// resolved through SafeJoin before anything is written; a single unsafe
// entry aborts the whole extraction. A cancelled or failed extract may
// leave a partial directory tree behind.
func (e *Engine) Extract(ctx context.Context, archivePath, outputDir string, progress ProgressFunc) error {
	zr, closer, err := e.openReader(archivePath)
	if err != nil {
		return err
	}
	defer closer.Close()

	targets := make([]string, len(zr.File))
	for i, f := range zr.File {
		target, err := SafeJoin(outputDir, f.Name)
		if err != nil {
			return fmt.Errorf("refusing to extract %s: %w", archivePath, err)
		}
		targets[i] = target
	}

	if err := e.fs.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outputDir, wrap(ErrIO, err))
	}

	total := int64(len(zr.File))
	buf := make([]byte, e.opts.IOBufferSize)
	for i, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled while extracting %s: %w", f.Name, ErrCancelled)
		}
		if err := e.extractEntry(f, targets[i], buf); err != nil {
			return err
		}
		progress.report(int64(i+1), total, f.Name)
	}

	e.logger.Debug("archive extracted",
		zap.String("archive", archivePath),
		zap.String("output", outputDir),
		zap.Int64("entries", total))
	return nil
}

func (e *Engine) extractEntry(f *zip.File, target string, buf []byte) (err error) {
	if f.FileInfo().IsDir() {
		if err := e.fs.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", target, wrap(ErrIO, err))
		}
		return nil
	}

	if err := e.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", target, wrap(ErrIO, err))
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", f.Name, wrap(ErrCodec, err))
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()

	out, err := e.fs.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, wrap(ErrIO, err))
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	if _, err := copyBuffered(out, rc, buf); err != nil {
		return fmt.Errorf("failed to extract entry %s: %w", f.Name, wrap(classifyReadError(err), err))
	}
	return nil
}

// List returns the entry names of the archive in container order. It
// has no filesystem side effects.
func (e *Engine) List(ctx context.Context, archivePath string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled before listing %s: %w", archivePath, ErrCancelled)
	}

	zr, closer, err := e.openReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return lo.Map(zr.File, func(f *zip.File, _ int) string {
		return f.Name
	}), nil
}

// Entries returns the full entry metadata of the archive.
func (e *Engine) Entries(ctx context.Context, archivePath string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled before reading %s: %w", archivePath, ErrCancelled)
	}

	zr, closer, err := e.openReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, Entry{
			Name:             f.Name,
			IsDir:            f.FileInfo().IsDir(),
			UncompressedSize: f.UncompressedSize64,
			CompressedSize:   f.CompressedSize64,
		})
	}
	return entries, nil
}

// Validate forces a full streaming read of every entry so the codec's
// CRC32 check fires. Any mismatch or read failure is a hard error;
// success means every entry was read without error.
func (e *Engine) Validate(ctx context.Context, archivePath string, progress ProgressFunc) error {
	zr, closer, err := e.openReader(archivePath)
	if err != nil {
		return err
	}
	defer closer.Close()

	total := int64(len(zr.File))
	buf := make([]byte, e.opts.IOBufferSize)
	for i, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled while validating %s: %w", f.Name, ErrCancelled)
		}
		if err := readEntryFully(f, buf); err != nil {
			return fmt.Errorf("entry %s failed validation: %w", f.Name, wrap(ErrCodec, err))
		}
		progress.report(int64(i+1), total, f.Name)
	}
	return nil
}

func readEntryFully(f *zip.File, buf []byte) (err error) {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()

	_, err = copyBuffered(io.Discard, rc, buf)
	return err
}

// Stats aggregates entry counts and cumulative sizes for the archive.
func (e *Engine) Stats(ctx context.Context, archivePath string) (Stats, error) {
	entries, err := e.Entries(ctx, archivePath)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, entry := range entries {
		if entry.IsDir {
			stats.DirCount++
			continue
		}
		stats.FileCount++
		stats.TotalUncompressedSize += entry.UncompressedSize
		stats.TotalCompressedSize += entry.CompressedSize
	}
	if stats.TotalUncompressedSize > 0 {
		stats.CompressionRatio = float64(stats.TotalCompressedSize) / float64(stats.TotalUncompressedSize) * 100.0
	}
	return stats, nil
}

// Hash streams the file through SHA-256 and returns the lowercase hex
// digest. Progress is reported in bytes against the file size.
func (e *Engine) Hash(ctx context.Context, filePath string, progress ProgressFunc) (string, error) {
	f, err := e.fs.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("file does not exist: %s: %w", filePath, ErrNotFound)
		}
		return "", fmt.Errorf("failed to open %s: %w", filePath, wrap(ErrIO, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", filePath, wrap(ErrIO, err))
	}

	hasher := sha256.New()
	buf := make([]byte, e.opts.IOBufferSize)
	var hashed int64
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("cancelled while hashing %s: %w", filePath, ErrCancelled)
		}
		n, err := f.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			hashed += int64(n)
			progress.report(hashed, info.Size(), filePath)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", filePath, wrap(ErrIO, err))
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// openReader opens the archive and constructs a zip reader with the
// fast inflate registered.
func (e *Engine) openReader(archivePath string) (*zip.Reader, io.Closer, error) {
	f, err := e.fs.Open(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("archive does not exist: %s: %w", archivePath, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to open archive %s: %w", archivePath, wrap(ErrIO, err))
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat archive %s: %w", archivePath, wrap(ErrIO, err))
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to read archive %s: %w", archivePath, wrap(ErrCodec, err))
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	return zr, f, nil
}

// classifyReadError maps a streaming-copy failure to the codec or IO
// category. Checksum mismatches surface from the zip reader on full
// consumption of an entry.
func classifyReadError(err error) error {
	if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) {
		return ErrCodec
	}
	return ErrIO
}

// copyBuffered streams src to dst through the caller's buffer so large
// files are never fully resident in memory.
func copyBuffered(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
