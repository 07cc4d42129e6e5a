package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rolypoly/rolypoly/internal/app"
)

var hashCommand = &cli.Command{
	Name:  "hash",
	Usage: "Compute the SHA-256 digest of a file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Archive profile file (YAML)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "file",
			UsageText: "The file to hash",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		mode := getOutputMode(ctx)

		filePath := command.StringArg("file")
		if filePath == "" {
			return fmt.Errorf("no file given")
		}

		c, err := buildCoordinator(ctx, command, "")
		if err != nil {
			return err
		}

		if err := c.states.TransitionTo(app.StateFilesSelected{Files: []string{filePath}}); err != nil {
			return err
		}

		result, err := c.run(ctx, mode, app.CalculateHash{File: filePath})
		if err != nil {
			return err
		}

		if hashed, ok := result.(app.HashCalculated); ok {
			if mode.JSON {
				emitJSON(mode, map[string]any{"event": "hash", "file": filePath, "sha256": hashed.Digest})
			} else {
				fmt.Printf("%s  %s\n", hashed.Digest, filePath)
			}
		}

		return nil
	},
}
