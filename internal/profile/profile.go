// Package profile parses and validates archive profile files and
// builds engine options and publish sinks from them.
package profile

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	v1 "github.com/rolypoly/rolypoly/apis/v1"
	"github.com/rolypoly/rolypoly/internal/archive"
	"github.com/rolypoly/rolypoly/internal/sinks"
)

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// Parse unmarshals a YAML profile document and validates it. It
// returns a validated profile or an error describing what failed.
func Parse(data []byte) (v1.ArchiveProfile, error) {
	var p v1.ArchiveProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return v1.ArchiveProfile{}, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	if err := defaultValidator.Struct(p); err != nil {
		return v1.ArchiveProfile{}, fmt.Errorf("failed to validate profile: %w", err)
	}

	if p.Spec.Publish != nil && p.Spec.Publish.Folder != nil && p.Spec.Publish.S3 != nil {
		return v1.ArchiveProfile{}, fmt.Errorf("profile %q sets more than one publish destination", p.Metadata.Name)
	}

	return p, nil
}

// BuildOptions merges the profile's option overrides over the engine
// defaults.
func BuildOptions(p v1.ArchiveProfile) archive.Options {
	opts := archive.DefaultOptions()
	spec := p.Spec.Options
	if spec == nil {
		return opts
	}

	if spec.CompressionLevel != nil {
		opts.CompressionLevel = spec.CompressionLevel
	}
	if spec.AutoStore != nil {
		opts.AutoStore = *spec.AutoStore
	}
	if spec.StoreEntropyThreshold > 0 {
		opts.StoreEntropyThreshold = spec.StoreEntropyThreshold
	}
	if spec.IOBufferSize > 0 {
		opts.IOBufferSize = spec.IOBufferSize
	}
	return opts
}

// MaxOperations returns the profile's operation bound, or fallback
// when unset.
func MaxOperations(p v1.ArchiveProfile, fallback int64) int64 {
	if p.Spec.Concurrency != nil && p.Spec.Concurrency.MaxOperations > 0 {
		return p.Spec.Concurrency.MaxOperations
	}
	return fallback
}

// EventBuffer returns the profile's per-subscriber event backlog, or
// fallback when unset.
func EventBuffer(p v1.ArchiveProfile, fallback int) int {
	if p.Spec.Concurrency != nil && p.Spec.Concurrency.EventBuffer > 0 {
		return p.Spec.Concurrency.EventBuffer
	}
	return fallback
}

// BuildSink constructs the publish sink named by the profile, or nil
// when the profile has no publish destination.
func BuildSink(ctx context.Context, p v1.ArchiveProfile) (sinks.Sink, error) {
	publish := p.Spec.Publish
	if publish == nil {
		return nil, nil
	}

	switch {
	case publish.Folder != nil:
		sink, err := sinks.NewFilesystemSinkFromPath(publish.Folder.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to build folder sink: %w", err)
		}
		return sink, nil

	case publish.S3 != nil:
		sink, err := sinks.NewS3Sink(ctx, sinks.S3Config{
			Bucket:          publish.S3.Bucket,
			Region:          publish.S3.Region,
			Endpoint:        publish.S3.Endpoint,
			Prefix:          publish.S3.Prefix,
			AccessKeyID:     publish.S3.AccessKeyID,
			SecretAccessKey: publish.S3.SecretAccessKey,
			ForcePathStyle:  publish.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build s3 sink: %w", err)
		}
		return sink, nil

	default:
		return nil, nil
	}
}
