package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rolypoly/rolypoly/internal/app"
)

var createCommand = &cli.Command{
	Name:  "create",
	Usage: "Create a zip archive from files and directories",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "Path of the archive to create",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "level",
			Usage: "Deflate compression level (-2 to 9)",
		},
		&cli.BoolFlag{
			Name:  "no-auto-store",
			Usage: "Disable the entropy heuristic and deflate every file",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Archive profile file (YAML)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		mode := getOutputMode(ctx)

		inputs := command.Args().Slice()
		if len(inputs) == 0 {
			return fmt.Errorf("no input files or directories given")
		}
		output := command.String("output")

		c, err := buildCoordinator(ctx, command, output)
		if err != nil {
			return err
		}

		if err := c.states.TransitionTo(app.StateFilesSelected{Files: inputs}); err != nil {
			return err
		}
		c.states.Emit(app.FilesAdded{Files: inputs})

		result, err := c.run(ctx, mode, app.CreateArchive{Output: output, Files: inputs})
		if err != nil {
			return err
		}

		if created, ok := result.(app.ArchiveCreated); ok {
			if mode.JSON {
				emitJSON(mode, map[string]any{"event": "created", "archive": created.Path})
			} else {
				fmt.Printf("✓ Created %s\n", created.Path)
			}
		}

		if c.publish != nil {
			if err := c.publish(ctx); err != nil {
				return err
			}
		}

		return nil
	},
}
