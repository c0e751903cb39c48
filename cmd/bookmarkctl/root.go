package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/bookmarkd/internal/app"
)

// Persistent flag variables.
var (
	flagConfig         string
	flagStoreDriver    string
	flagStorePath      string
	flagSummarizerBase string
	flagSummarizerMode string
	flagCacheDir       string
	flagVerbose        bool
)

// cfg is resolved once in PersistentPreRunE.
var cfg app.Config

var rootCmd = &cobra.Command{
	Use:   "bookmarkctl",
	Short: "bookmarkctl: maintenance CLI for bookmarkd",
	Long: `bookmarkctl works directly on the bookmarkd store and summary pipeline.
It reads the same .env file, config file and environment variables as the server.

Usage:
  bookmarkctl summarize <url>
  bookmarkctl refresh --user <email>
  bookmarkctl export --user <email> --format md
  bookmarkctl users <email>
  bookmarkctl purge-cache --max-age 168h`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", os.Getenv("BOOKMARKD_CONFIG"), "Path to a YAML or JSON config file")
	pf.StringVar(&flagStoreDriver, "store.driver", "", "Store backend: json, sqlite or mongo")
	pf.StringVar(&flagStorePath, "store.path", "", "JSON file or SQLite database path")
	pf.StringVar(&flagSummarizerBase, "summarizer.base", "", "Reader service base URL")
	pf.StringVar(&flagSummarizerMode, "summarizer.mode", "", "Primary summarizer: reader or llm")
	pf.StringVar(&flagCacheDir, "cache.dir", "", "Cache directory path")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose logging")
}

// loadConfig layers defaults, file and env, then applies flags that were
// explicitly set.
func loadConfig(cmd *cobra.Command, _ []string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := app.LoadEnvFiles(".env"); err != nil {
		log.Warn().Err(err).Msg("load .env failed")
	}
	resolved, err := app.ResolveConfig(flagConfig)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("store.driver") {
		resolved.StoreDriver = flagStoreDriver
	}
	if flags.Changed("store.path") {
		resolved.StorePath = flagStorePath
	}
	if flags.Changed("summarizer.base") {
		resolved.SummarizerBase = flagSummarizerBase
	}
	if flags.Changed("summarizer.mode") {
		resolved.SummarizerMode = flagSummarizerMode
	}
	if flags.Changed("cache.dir") {
		resolved.CacheDir = flagCacheDir
	}
	if flags.Changed("verbose") {
		resolved.Verbose = flagVerbose
	}
	if resolved.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	if err := app.ValidateConfig(resolved); err != nil {
		return err
	}
	cfg = resolved
	return nil
}

// withApp builds the application for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	return fn(a)
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print build information",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "bookmarkctl", app.VersionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
