package archive

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// reservedNames are Windows device names that must never be created as
// files or directories, with or without an extension.
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SafeJoin resolves an untrusted archive entry name against destRoot and
// returns the joined filesystem path. It rejects absolute names, names
// that lexically escape destRoot, embedded NUL bytes and reserved device
// names. It must be called before any filesystem write during
// extraction.
func SafeJoin(destRoot, entryName string) (string, error) {
	if entryName == "" {
		return "", fmt.Errorf("empty entry name: %w", ErrPathTraversal)
	}
	if strings.ContainsRune(entryName, 0) {
		return "", fmt.Errorf("entry name %q contains NUL: %w", entryName, ErrPathTraversal)
	}

	// Zip names are forward-slash separated, but archives produced by
	// careless writers use backslashes. Treat both as separators.
	name := strings.ReplaceAll(entryName, `\`, "/")

	if strings.HasPrefix(name, "/") || hasDrivePrefix(name) {
		return "", fmt.Errorf("absolute entry name %q: %w", entryName, ErrPathTraversal)
	}

	clean := path.Clean(name)
	if clean == "." {
		return "", fmt.Errorf("entry name %q resolves to the destination root: %w", entryName, ErrPathTraversal)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("entry name %q escapes the destination: %w", entryName, ErrPathTraversal)
	}

	for _, segment := range strings.Split(clean, "/") {
		if isReservedName(segment) {
			return "", fmt.Errorf("entry name %q contains reserved device name %q: %w", entryName, segment, ErrPathTraversal)
		}
	}

	return filepath.Join(destRoot, filepath.FromSlash(clean)), nil
}

func hasDrivePrefix(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isReservedName(segment string) bool {
	base := segment
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	_, ok := reservedNames[strings.ToUpper(base)]
	return ok
}
