package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/bookmarkd/internal/app"
	"github.com/hyperifyio/bookmarkd/internal/bookmarks"
	"github.com/hyperifyio/bookmarkd/internal/summary"
)

var (
	flagRefreshUser            string
	flagRefreshOnlyUnavailable bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-summarize a user's bookmarks",
	Long: `Refresh re-runs the summary pipeline for every bookmark of a user, one at a
time, and stores each result.

Examples:
  bookmarkctl refresh --user me@example.com
  bookmarkctl refresh --user me@example.com --unavailable-only`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().StringVar(&flagRefreshUser, "user", "", "Email of the bookmark owner (required)")
	refreshCmd.Flags().BoolVar(&flagRefreshOnlyUnavailable, "unavailable-only", false, "Only refresh bookmarks whose summary is unavailable")
	_ = refreshCmd.MarkFlagRequired("user")
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		u, err := a.Store().UserByEmail(ctx, flagRefreshUser)
		if err != nil {
			return fmt.Errorf("user %s: %w", flagRefreshUser, err)
		}
		list, err := a.Bookmarks().List(ctx, u.ID, bookmarks.Filter{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		failed := 0
		for _, b := range list {
			if flagRefreshOnlyUnavailable && b.Summary != summary.Unavailable {
				continue
			}
			_, res, err := a.Bookmarks().RefreshSummary(ctx, u.ID, b.ID)
			if err != nil {
				return err
			}
			if res.IsUnavailable() {
				failed++
				log.Warn().Str("id", b.ID).Str("url", b.URL).Str("error", res.ErrorDetail).Msg("summary unavailable")
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", b.ID, res.Kind, b.URL)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d summaries unavailable", failed, len(list))
		}
		return nil
	})
}
