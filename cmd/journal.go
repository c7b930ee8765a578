package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/mispctl/internal/journal"
)

var (
	journalLimit   int
	journalOutcome string
	journalSummary bool
)

// journalCmd represents the journal command
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recorded MISP API calls",
	Long: `List the MISP API calls recorded in the local journal, newest first.

Examples:
  # Last 20 calls
  mispctl journal

  # Only failed transport calls
  mispctl journal --outcome transport --limit 50

  # Counts per outcome
  mispctl journal --summary`,
	RunE: runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().IntVar(&journalLimit, "limit", 20, "Maximum number of calls to show")
	journalCmd.Flags().StringVar(&journalOutcome, "outcome", "", "Filter by outcome: ok, duplicate, transport, unknown")
	journalCmd.Flags().BoolVar(&journalSummary, "summary", false, "Show counts per outcome instead of calls")
}

func runJournal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()
	out := cmd.OutOrStdout()

	if cfg.Journal.Path == "" {
		return fmt.Errorf("journal disabled: set --journal or MISPCTL_JOURNAL_PATH")
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	if journalSummary {
		counts, err := j.Counts(ctx)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Fprintln(out, "No calls recorded.")
			return nil
		}
		outcomes := make([]string, 0, len(counts))
		for o := range counts {
			outcomes = append(outcomes, o)
		}
		sort.Strings(outcomes)
		for _, o := range outcomes {
			fmt.Fprintf(out, "%-10s %d\n", o, counts[o])
		}
		return nil
	}

	entries, err := j.Recent(ctx, journalOutcome, journalLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No calls recorded.")
		return nil
	}

	fmt.Fprintf(out, "Found %d calls:\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(out, "%d. [%s] %s %s\n", i+1, e.Outcome, e.Method, e.URI)
		if e.StatusCode != 0 {
			fmt.Fprintf(out, "   Status: %d\n", e.StatusCode)
		}
		fmt.Fprintf(out, "   Duration: %s\n", e.Duration)
		fmt.Fprintf(out, "   At: %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
		if e.Detail != "" {
			fmt.Fprintf(out, "   Detail: %s\n", e.Detail)
		}
		fmt.Fprintln(out)
	}
	return nil
}
