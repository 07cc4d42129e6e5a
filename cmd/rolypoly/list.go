package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rolypoly/rolypoly/internal/archive"
)

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the entries of a zip archive",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "long",
			Usage: "Show sizes alongside entry names",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "The archive to list",
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

		if command.Bool("long") || mode.JSON {
			entries, err := engine.Entries(ctx, archivePath)
			if err != nil {
				return err
			}
			if mode.JSON {
				for _, entry := range entries {
					emitJSON(mode, map[string]any{
						"event":             "entry",
						"name":              entry.Name,
						"is_dir":            entry.IsDir,
						"uncompressed_size": entry.UncompressedSize,
						"compressed_size":   entry.CompressedSize,
					})
				}
				return nil
			}
			for _, entry := range entries {
				fmt.Printf("%12d  %12d  %s\n", entry.UncompressedSize, entry.CompressedSize, entry.Name)
			}
			return nil
		}

		names, err := engine.List(ctx, archivePath)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}
