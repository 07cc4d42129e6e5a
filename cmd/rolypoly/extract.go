package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rolypoly/rolypoly/internal/app"
)

var extractCommand = &cli.Command{
	Name:  "extract",
	Usage: "Extract a zip archive into a directory",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "directory",
			Aliases: []string{"C"},
			Value:   ".",
			Usage:   "Destination directory",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Archive profile file (YAML)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "The archive to extract",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		mode := getOutputMode(ctx)

		archivePath := command.StringArg("archive")
		if archivePath == "" {
			return fmt.Errorf("no archive given")
		}
		outputDir := command.String("directory")

		c, err := buildCoordinator(ctx, command, "")
		if err != nil {
			return err
		}

		if err := c.states.TransitionTo(app.StateArchiveLoaded{Path: archivePath}); err != nil {
			return err
		}
		c.states.Emit(app.ArchiveOpened{Path: archivePath})

		result, err := c.run(ctx, mode, app.ExtractArchive{Archive: archivePath, Output: outputDir})
		if err != nil {
			return err
		}

		if extracted, ok := result.(app.ArchiveExtracted); ok {
			if mode.JSON {
				emitJSON(mode, map[string]any{"event": "extracted", "output": extracted.Path})
			} else {
				fmt.Printf("✓ Extracted to %s\n", extracted.Path)
			}
		}

		return nil
	},
}
