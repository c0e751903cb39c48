package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/bookmarkd/internal/app"
	"github.com/hyperifyio/bookmarkd/internal/bookmarks"
	"github.com/hyperifyio/bookmarkd/internal/export"
)

var (
	flagExportUser   string
	flagExportFormat string
	flagExportOut    string
	flagExportTags   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's bookmarks as JSON, Markdown or PDF",
	Long: `Export writes a user's bookmarks in their saved order.

Examples:
  bookmarkctl export --user me@example.com --format md
  bookmarkctl export --user me@example.com --format pdf --out bookmarks.pdf
  bookmarkctl export --user me@example.com --tags go,web`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&flagExportUser, "user", "", "Email of the bookmark owner (required)")
	exportCmd.Flags().StringVar(&flagExportFormat, "format", "json", "Output format: json, md or pdf")
	exportCmd.Flags().StringVar(&flagExportOut, "out", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVar(&flagExportTags, "tags", "", "Only export bookmarks with any of these comma-separated tags")
	_ = exportCmd.MarkFlagRequired("user")
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(flagExportFormat)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		u, err := a.Store().UserByEmail(ctx, flagExportUser)
		if err != nil {
			return fmt.Errorf("user %s: %w", flagExportUser, err)
		}
		list, err := a.Bookmarks().List(ctx, u.ID, bookmarks.ParseFilter("", flagExportTags, "any"))
		if err != nil {
			return err
		}
		var w io.Writer = cmd.OutOrStdout()
		if flagExportOut != "" {
			f, err := os.Create(flagExportOut)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			w = f
		}
		return export.Write(w, format, "Bookmarks of "+u.Email, list)
	})
}
