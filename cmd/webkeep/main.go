// Command webkeep archives web pages as Markdown documents with local,
// normalized image copies. It runs as an HTTP server or as a one-shot CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/webkeep/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Configuration is loaded once before
// any subcommand runs and stored on the returned app.
func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		a       = &app{}
	)

	cmd := &cobra.Command{
		Use:   "webkeep",
		Short: "Archive web pages as Markdown with local images",
		Long: `webkeep fetches a page, extracts its readable content (including text
hidden in disclosure widgets) as Markdown, downloads every image the page
references as a bounded-size JPEG, and saves it all under a destination
directory.

Usage:
  webkeep serve
  webkeep archive <url> [--dest name]
  webkeep destinations`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile != "" {
				if err := os.Setenv("WEBKEEP_CONFIG", cfgFile); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			initLogger(cfg.Log)
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides WEBKEEP_CONFIG)")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newArchiveCmd(a))
	cmd.AddCommand(newDestinationsCmd(a))
	return cmd
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
