package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/bellhop/internal/config"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "bellhop",
	Short: "Admin CLI for the Bellhop request gateway",
	Long: `bellhop - admin CLI for the Bellhop request gateway

Checks configuration and manages login sessions in the Bellhop database.

Run 'bellhopd' to start the server daemon.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("bellhop {{.Version}}\n")
}

// resolveConfigPath returns the --config flag, an explicit argument, or the
// discovered config file, in that order.
func resolveConfigPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if configPath != "" {
		return configPath, nil
	}
	return config.Discover()
}
