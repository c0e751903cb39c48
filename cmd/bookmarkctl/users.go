package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/bookmarkd/internal/app"
)

var usersCmd = &cobra.Command{
	Use:   "users <email>",
	Short: "Show a user's account and bookmark counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		u, err := a.Store().UserByEmail(ctx, args[0])
		if err != nil {
			return fmt.Errorf("user %s: %w", args[0], err)
		}
		list, err := a.Store().ListBookmarks(ctx, u.ID)
		if err != nil {
			return err
		}
		counts := map[string]int{}
		for _, b := range list {
			src := b.SummarySource
			if src == "" {
				src = "unknown"
			}
			counts[src]++
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id:         %s\n", u.ID)
		fmt.Fprintf(out, "email:      %s\n", u.Email)
		fmt.Fprintf(out, "created:    %s\n", u.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "bookmarks:  %d\n", len(list))
		for _, k := range []string{"primary", "fallback", "unavailable", "unknown"} {
			if counts[k] > 0 {
				fmt.Fprintf(out, "  %-11s %d\n", k+":", counts[k])
			}
		}
		return nil
	})
}
