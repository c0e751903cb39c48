package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/bookmarkd/internal/app"
	"github.com/hyperifyio/bookmarkd/internal/summary"
)

var flagSummarizeJSON bool

var summarizeCmd = &cobra.Command{
	Use:   "summarize <url>",
	Short: "Run the summary pipeline for one URL without saving it",
	Long: `Summarize runs the same primary-then-fallback pipeline the server uses when a
bookmark is added and prints the outcome.

Examples:
  bookmarkctl summarize example.com
  bookmarkctl summarize https://go.dev/blog --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().BoolVar(&flagSummarizeJSON, "json", false, "Print the full result as JSON")
}

type summarizeOutput struct {
	URL          string  `json:"url"`
	Source       string  `json:"source"`
	Summary      string  `json:"summary"`
	FallbackUsed bool    `json:"fallbackUsed"`
	Status       *int    `json:"status"`
	Error        *string `json:"error"`
}

func runSummarize(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		res := a.Pipeline().Acquire(cmd.Context(), args[0])
		out := cmd.OutOrStdout()
		if flagSummarizeJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summarizeOutput{
				URL:          summary.NormalizeURL(args[0]),
				Source:       res.Kind.String(),
				Summary:      res.Text,
				FallbackUsed: res.UsedFallback(),
				Status:       res.StatusPtr(),
				Error:        res.ErrorPtr(),
			})
		}
		fmt.Fprintln(out, res.Text)
		if res.IsUnavailable() {
			return fmt.Errorf("summary unavailable: %s", res.ErrorDetail)
		}
		return nil
	})
}
