package app

import (
	"fmt"
	"slices"
)

// Operation is the closed set of archive operations a front end can
// request. Operations are compared by value via Equal.
type Operation interface {
	isOperation()

	// Describe returns a short human-readable label for the operation.
	Describe() string

	// Equal reports whether the other operation has the same variant
	// and payload.
	Equal(other Operation) bool
}

// CreateArchive packages Files into a new archive at Output.
type CreateArchive struct {
	Output string
	Files  []string
}

// ExtractArchive unpacks Archive into the Output directory.
type ExtractArchive struct {
	Archive string
	Output  string
}

// ValidateArchive checks the integrity of every entry in Archive.
type ValidateArchive struct {
	Archive string
}

// CalculateHash computes the digest of File.
type CalculateHash struct {
	File string
}

func (CreateArchive) isOperation()   {}
func (ExtractArchive) isOperation()  {}
func (ValidateArchive) isOperation() {}
func (CalculateHash) isOperation()   {}

func (o CreateArchive) Describe() string {
	return fmt.Sprintf("create %s (%d inputs)", o.Output, len(o.Files))
}

func (o ExtractArchive) Describe() string {
	return fmt.Sprintf("extract %s to %s", o.Archive, o.Output)
}

func (o ValidateArchive) Describe() string {
	return fmt.Sprintf("validate %s", o.Archive)
}

func (o CalculateHash) Describe() string {
	return fmt.Sprintf("hash %s", o.File)
}

func (o CreateArchive) Equal(other Operation) bool {
	b, ok := other.(CreateArchive)
	return ok && o.Output == b.Output && slices.Equal(o.Files, b.Files)
}

func (o ExtractArchive) Equal(other Operation) bool {
	b, ok := other.(ExtractArchive)
	return ok && o == b
}

func (o ValidateArchive) Equal(other Operation) bool {
	b, ok := other.(ValidateArchive)
	return ok && o == b
}

func (o CalculateHash) Equal(other Operation) bool {
	b, ok := other.(CalculateHash)
	return ok && o == b
}

// OperationResult is the closed set of successful operation outcomes.
type OperationResult interface {
	isOperationResult()
}

// ArchiveCreated reports the path of a newly written archive.
type ArchiveCreated struct {
	Path string
}

// ArchiveExtracted reports the directory an archive was unpacked into.
type ArchiveExtracted struct {
	Path string
}

// ArchiveValidated reports whether every entry passed its integrity
// check.
type ArchiveValidated struct {
	Valid bool
}

// HashCalculated carries a lowercase hex digest.
type HashCalculated struct {
	Digest string
}

func (ArchiveCreated) isOperationResult()   {}
func (ArchiveExtracted) isOperationResult() {}
func (ArchiveValidated) isOperationResult() {}
func (HashCalculated) isOperationResult()   {}
