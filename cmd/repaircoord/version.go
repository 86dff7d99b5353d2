package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// version is set by build flags
	version = "dev"
	// buildDate is set by build flags
	buildDate = "unknown"
	// gitCommit is set by build flags
	gitCommit = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display version, build date, and system information for repaircoord.",
	RunE: func(cmd *cobra.Command, args []string) error {
		showDetailed, err := cmd.Flags().GetBool("detailed")
		if err != nil {
			return fmt.Errorf("failed to get detailed flag: %w", err)
		}
		showShort, err := cmd.Flags().GetBool("short")
		if err != nil {
			return fmt.Errorf("failed to get short flag: %w", err)
		}

		out := cmd.OutOrStdout()
		switch {
		case showShort:
			fmt.Fprintf(out, "%s\n", version)
		case showDetailed:
			fmt.Fprintf(out, "repaircoord version %s\n", version)
			fmt.Fprintf(out, "Build date: %s\n", buildDate)
			fmt.Fprintf(out, "Git commit: %s\n", gitCommit)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		default:
			fmt.Fprintf(out, "repaircoord version %s\n", version)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("detailed", "d", false, "show detailed version information")
	versionCmd.Flags().BoolP("short", "s", false, "show only version number")
}
