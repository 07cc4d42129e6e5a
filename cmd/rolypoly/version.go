package main

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

// buildInfo describes the running binary, read from the embedded
// module and VCS metadata.
type buildInfo struct {
	Version   string
	GoVersion string
	Commit    string
	BuildTime string
	Dirty     bool
}

func readBuildInfo() buildInfo {
	bi := buildInfo{Version: "devel"}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}

	if info.Main.Version != "" {
		bi.Version = info.Main.Version
	}
	bi.GoVersion = info.GoVersion

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			bi.Commit = setting.Value
		case "vcs.time":
			bi.BuildTime = setting.Value
		case "vcs.modified":
			bi.Dirty = setting.Value == "true"
		}
	}
	return bi
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version information",
	Action: func(ctx context.Context, command *cli.Command) error {
		mode := getOutputMode(ctx)
		bi := readBuildInfo()

		if mode.JSON {
			payload := map[string]any{
				"event":   "version",
				"version": bi.Version,
				"go":      bi.GoVersion,
			}
			if bi.Commit != "" {
				payload["commit"] = bi.Commit
				payload["dirty"] = bi.Dirty
			}
			if bi.BuildTime != "" {
				payload["built"] = bi.BuildTime
			}
			emitJSON(mode, payload)
			return nil
		}

		fmt.Printf("rolypoly %s (%s)\n", bi.Version, bi.GoVersion)
		if bi.Commit != "" {
			commit := bi.Commit
			if bi.Dirty {
				commit += " (dirty)"
			}
			fmt.Printf("commit: %s\n", commit)
		}
		if bi.BuildTime != "" {
			fmt.Printf("built:  %s\n", bi.BuildTime)
		}
		return nil
	},
}
