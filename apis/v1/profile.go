// Package v1 defines the versioned YAML schema for archive profiles.
package v1

// ArchiveProfile is the top-level profile document. A profile bundles
// engine options, coordinator limits and an optional publish
// destination for finished archives.
type ArchiveProfile struct {
	Kind     string             `yaml:"kind" json:"kind" validate:"required,eq=ArchiveProfile"`
	Metadata Metadata           `yaml:"metadata" json:"metadata"`
	Spec     ArchiveProfileSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type ArchiveProfileSpec struct {
	Options     *OptionsSpec     `yaml:"options,omitempty" json:"options,omitempty"`
	Concurrency *ConcurrencySpec `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	Publish     *PublishSpec     `yaml:"publish,omitempty" json:"publish,omitempty"`
}

// OptionsSpec overrides the engine defaults. Absent fields keep their
// defaults.
type OptionsSpec struct {
	// CompressionLevel is a deflate level, -2 (huffman only) to 9.
	CompressionLevel *int `yaml:"compression_level,omitempty" json:"compression_level,omitempty" validate:"omitempty,min=-2,max=9"`

	// AutoStore toggles the entropy-driven store-vs-deflate policy.
	AutoStore *bool `yaml:"auto_store,omitempty" json:"auto_store,omitempty"`

	// StoreEntropyThreshold is the bits-per-byte cutoff above which a
	// file is stored uncompressed (default 7.8).
	StoreEntropyThreshold float64 `yaml:"store_entropy_threshold,omitempty" json:"store_entropy_threshold,omitempty" validate:"omitempty,gt=0,lte=8"`

	// IOBufferSize is the streaming copy buffer in bytes (default 256 KiB).
	IOBufferSize int `yaml:"io_buffer_size,omitempty" json:"io_buffer_size,omitempty" validate:"omitempty,min=4096"`
}

// ConcurrencySpec bounds the operation coordinator.
type ConcurrencySpec struct {
	// MaxOperations caps simultaneously running operations (default 3).
	MaxOperations int64 `yaml:"max_operations,omitempty" json:"max_operations,omitempty" validate:"omitempty,min=1"`

	// EventBuffer is the per-subscriber event backlog (default 100).
	EventBuffer int `yaml:"event_buffer,omitempty" json:"event_buffer,omitempty" validate:"omitempty,min=1"`
}

// PublishSpec configures where a finished archive is copied. At most
// one destination should be set.
type PublishSpec struct {
	Folder *FolderSpec `yaml:"folder,omitempty" json:"folder,omitempty"`
	S3     *S3Spec     `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// FolderSpec publishes into a local directory.
type FolderSpec struct {
	Path string `yaml:"path" json:"path" validate:"required"`
}

// S3Spec publishes to S3-compatible object storage.
type S3Spec struct {
	Bucket          string `yaml:"bucket" json:"bucket" validate:"required"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix          string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
}
