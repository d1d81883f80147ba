package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Inspect client configuration",
	Annotations: standalone(),
	Long: `Show the effective configuration after defaults, the config file,
.env and PORTAL_* environment variables are applied.`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := *stateFrom(cmd.Context()).config
		if cfg.Storage.Redis.Password != "" {
			cfg.Storage.Redis.Password = "********"
		}
		if flagString(cmd, "format") == "text" {
			return printYAML(cmd, cfg)
		}
		return printResult(cmd, cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := stateFrom(cmd.Context()).loader.Path()
		if path == "" {
			path = "(none, using defaults)"
		}
		return printResult(cmd, path)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value, e.g. api.url",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, ok := stateFrom(cmd.Context()).loader.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown configuration key %q", args[0])
		}
		return printResult(cmd, fmt.Sprint(v))
	},
}

func init() {
	configCmd.AddCommand(configViewCmd, configPathCmd, configGetCmd)
	rootCmd.AddCommand(configCmd)
}
