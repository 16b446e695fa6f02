package main

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Set by the linker at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
	Go      string `json:"go"`
	Arch    string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version: version,
			Commit:  commit,
			Built:   date,
			Go:      runtime.Version(),
			Arch:    runtime.GOOS + "/" + runtime.GOARCH,
		}
		if jsonOut {
			return printJSON(info)
		}
		printInfo("heapctl %s\n", info.Version)
		printInfo("  commit: %s\n", info.Commit)
		printInfo("  built: %s\n", info.Built)
		printInfo("  go: %s %s\n", info.Go, info.Arch)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
