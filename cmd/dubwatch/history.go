package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent event processing outcomes",
	Long: `Show the most recent webhook events and what the pipeline did
with them: reconciled into the collection, skipped, or failed.

Examples:
  dubwatch history            # Table of recent outcomes
  dubwatch history --json     # Raw records as JSON`,
	Args: cobra.NoArgs,
	RunE: runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)

	records, err := client.History()
	if err != nil {
		return fmt.Errorf("history fetch failed: %w", err)
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No history recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSOURCE\tKIND\tTITLE\tOUTCOME\tDETAIL")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.OccurredAt.Local().Format("2006-01-02 15:04"),
			r.Source, r.EventKind, r.Title, r.Outcome, r.Detail)
	}
	return w.Flush()
}
