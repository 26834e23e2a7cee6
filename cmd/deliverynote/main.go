// Command deliverynote parses, stores and exports delivery notes from the
// command line.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	logistics "github.com/hansjooseptammerik/logistics-automation-mvp"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deliverynote",
		Short: "Parse furniture delivery notes into dispatch orders",
		Long: `deliverynote extracts recipient, address, phone, notes and item rows
from delivery note PDFs, stores them as orders and exports them for
dispatch planning.

Example Usage:
  deliverynote parse note.pdf
  deliverynote ingest notes/*.pdf
  deliverynote list --status NEW
  deliverynote export --format xlsx -o orders.xlsx`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(cmd.ErrOrStderr(), verbose)

			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("loading .env", "error", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(evalCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads --config if given, then applies LOGISTICS_* overrides.
func loadConfig(cmd *cobra.Command) (logistics.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := logistics.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = logistics.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func openEngine(cmd *cobra.Command) (logistics.Engine, logistics.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	engine, err := logistics.New(cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("opening order store: %w", err)
	}
	return engine, cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the application version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "deliverynote")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		},
	}
}
