package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/bellhop/internal/config"
	"github.com/vmunix/bellhop/internal/media"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the server.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration file",
	Long:  "Writes the example config to path (default: $XDG_CONFIG_HOME/bellhop/config.toml).",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.Error
		if errors.As(err, &configErr) {
			printConfigErrors(out, configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(out, cfg)
	fmt.Fprintln(out, "\nConfiguration valid!")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}
	if err := config.WriteDefault(path, forceInit); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func printConfigErrors(out io.Writer, e *config.Error) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(out, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(out, "  - %s\n", m)
		}
		fmt.Fprintln(out)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(out, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(out, "  - %s\n", err)
		}
		fmt.Fprintln(out)
	}
}

func printConfigSummary(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Configuration Summary:")
	fmt.Fprintf(out, "  Server:     %s (log: %s, secure cookies: %t)\n", cfg.Server.Addr(), cfg.Server.LogLevel, cfg.Server.SecureCookies())
	fmt.Fprintf(out, "  Database:   %s\n", cfg.Database.Path)
	fmt.Fprintf(out, "  Homeserver: %s\n", cfg.Matrix.HomeserverURL)
	if cfg.Matrix.AuditEnabled() {
		fmt.Fprintf(out, "  Audit room: %s\n", cfg.Matrix.AuditRoomID)
	} else {
		fmt.Fprintln(out, "  Audit room: disabled")
	}

	var configured, missing []string
	reg := media.NewRegistry(cfg.MediaSettings())
	for _, b := range reg.Backends() {
		if b.Configured() {
			configured = append(configured, b.Kind.String())
		} else {
			missing = append(missing, b.Kind.String())
		}
	}
	fmt.Fprintf(out, "  Backends:   %s\n", orNone(configured))
	if len(missing) > 0 {
		fmt.Fprintf(out, "  Not configured: %s\n", strings.Join(missing, ", "))
	}
	fmt.Fprintf(out, "  Login limit: %d per %s\n", cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow)
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
