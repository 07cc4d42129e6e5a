package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rolypoly/rolypoly/internal/app"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Validate the integrity of every entry in a zip archive",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Archive profile file (YAML)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "The archive to validate",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		mode := getOutputMode(ctx)

		archivePath := command.StringArg("archive")
		if archivePath == "" {
			return fmt.Errorf("no archive given")
		}

		c, err := buildCoordinator(ctx, command, "")
		if err != nil {
			return err
		}

		if err := c.states.TransitionTo(app.StateArchiveLoaded{Path: archivePath}); err != nil {
			return err
		}
		c.states.Emit(app.ArchiveOpened{Path: archivePath})

		result, err := c.run(ctx, mode, app.ValidateArchive{Archive: archivePath})
		if err != nil {
			return fmt.Errorf("archive %s failed validation: %w", archivePath, err)
		}

		if validated, ok := result.(app.ArchiveValidated); ok && validated.Valid {
			if mode.JSON {
				emitJSON(mode, map[string]any{"event": "validated", "archive": archivePath, "valid": true})
			} else {
				fmt.Printf("✓ %s is valid\n", archivePath)
			}
		}

		return nil
	},
}
