package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/bookmarkd/internal/app"
	"github.com/hyperifyio/bookmarkd/internal/cache"
)

var (
	flagPurgeMaxAge     time.Duration
	flagPurgeAll        bool
	flagPurgeMaxEntries int
)

var purgeCacheCmd = &cobra.Command{
	Use:   "purge-cache",
	Short: "Remove old entries from the HTTP and LLM caches",
	Long: `Purge-cache removes cached page bodies and model responses older than
--max-age, caps the LLM cache at --max-entries, or clears everything with --all.`,
	Args: cobra.NoArgs,
	RunE: runPurgeCache,
}

func init() {
	rootCmd.AddCommand(purgeCacheCmd)
	purgeCacheCmd.Flags().DurationVar(&flagPurgeMaxAge, "max-age", 0, "Remove entries older than this (default: cache.maxAge from config)")
	purgeCacheCmd.Flags().BoolVar(&flagPurgeAll, "all", false, "Remove every cache entry")
	purgeCacheCmd.Flags().IntVar(&flagPurgeMaxEntries, "max-entries", 0, "Keep at most this many LLM entries (0 disables)")
}

func runPurgeCache(cmd *cobra.Command, _ []string) error {
	if cfg.CacheDir == "" {
		return errors.New("no cache directory configured")
	}
	out := cmd.OutOrStdout()
	if flagPurgeAll {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			return err
		}
		fmt.Fprintf(out, "cleared %s\n", cfg.CacheDir)
		return nil
	}
	maxAge := flagPurgeMaxAge
	if maxAge == 0 {
		maxAge = cfg.CacheMaxAge
	}
	if maxAge <= 0 && flagPurgeMaxEntries <= 0 {
		return errors.New("nothing to do: pass --max-age, --max-entries or --all")
	}
	httpRemoved, llmRemoved, err := app.PurgeCaches(cfg.CacheDir, maxAge)
	if err != nil {
		return err
	}
	if flagPurgeMaxEntries > 0 {
		n, err := app.EnforceLLMCacheLimit(cfg.CacheDir, flagPurgeMaxEntries)
		if err != nil {
			return err
		}
		llmRemoved += n
	}
	fmt.Fprintf(out, "removed %d http and %d llm entries\n", httpRemoved, llmRemoved)
	return nil
}
