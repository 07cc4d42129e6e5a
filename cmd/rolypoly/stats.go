package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rolypoly/rolypoly/internal/archive"
)

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "Show aggregate statistics for a zip archive",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "The archive to inspect",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)
		mode := getOutputMode(ctx)

		archivePath := command.StringArg("archive")
		if archivePath == "" {
			return fmt.Errorf("no archive given")
		}

		engine := archive.New(logger.Named("engine"), archive.DefaultOptions())
		stats, err := engine.Stats(ctx, archivePath)
		if err != nil {
			return err
		}

		if mode.JSON {
			emitJSON(mode, map[string]any{
				"event":                   "stats",
				"archive":                 archivePath,
				"file_count":              stats.FileCount,
				"dir_count":               stats.DirCount,
				"total_uncompressed_size": stats.TotalUncompressedSize,
				"total_compressed_size":   stats.TotalCompressedSize,
				"compression_ratio":       stats.CompressionRatio,
			})
			return nil
		}

		fmt.Printf("files:        %d\n", stats.FileCount)
		fmt.Printf("directories:  %d\n", stats.DirCount)
		fmt.Printf("uncompressed: %d bytes\n", stats.TotalUncompressedSize)
		fmt.Printf("compressed:   %d bytes\n", stats.TotalCompressedSize)
		fmt.Printf("ratio:        %.1f%%\n", stats.CompressionRatio)
		return nil
	},
}
