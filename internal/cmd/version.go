package cmd

import (
	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Args:        cobra.NoArgs,
	Annotations: standalone(),
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := version.GetInfo()
		if flagBool(cmd, "short") {
			return printResult(cmd, info.Short())
		}
		return printResult(cmd, info)
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}
