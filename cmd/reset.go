package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/Ashfaaq98/mispctl/internal/bus"
	"github.com/Ashfaaq98/mispctl/internal/journal"
)

var (
	confirmReset bool
	resetRedis   bool
	resetJournal bool
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the call journal and/or the event notice stream",
	Long: `Reset clears the local SQLite call journal and the misp-events Redis
stream. Nothing on the MISP server is touched.

By default both are cleared. Use --journal-only or --redis-only to clear one.

Examples:
  # Clear both (asks for confirmation)
  mispctl reset

  # Clear the journal without asking
  mispctl reset --journal-only --yes`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&confirmReset, "yes", "y", false, "Automatically confirm reset operation")
	resetCmd.Flags().BoolVar(&resetRedis, "redis-only", false, "Clear only the notice stream")
	resetCmd.Flags().BoolVar(&resetJournal, "journal-only", false, "Clear only the call journal")
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()
	out := cmd.OutOrStdout()

	doRedis, doJournal := resetRedis, resetJournal
	if !doRedis && !doJournal {
		doRedis, doJournal = true, true
	}
	if doRedis && cfg.Redis.URL == "" {
		if resetRedis {
			return fmt.Errorf("--redis-only requires --redis or MISPCTL_REDIS_URL")
		}
		doRedis = false
	}
	if doJournal && cfg.Journal.Path == "" {
		if resetJournal {
			return fmt.Errorf("--journal-only requires --journal or MISPCTL_JOURNAL_PATH")
		}
		doJournal = false
	}

	var targets []string
	if doJournal {
		targets = append(targets, "call journal "+cfg.Journal.Path)
	}
	if doRedis {
		targets = append(targets, "stream "+bus.NoticeStream)
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "Nothing to reset.")
		return nil
	}

	fmt.Fprintf(out, "This will permanently delete: %s\n", strings.Join(targets, " and "))
	if !confirmReset {
		fmt.Fprint(out, "Are you sure you want to continue? (y/N): ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if r := strings.ToLower(response); r != "y" && r != "yes" {
			fmt.Fprintln(out, "Reset operation cancelled.")
			return nil
		}
	}

	if doJournal {
		n, err := clearJournal(ctx, cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to clear journal: %w", err)
		}
		fmt.Fprintf(out, "✓ Removed %d journal entries\n", n)
	}

	if doRedis {
		if err := clearNoticeStream(ctx, cfg.Redis.URL); err != nil {
			return fmt.Errorf("failed to clear notice stream: %w", err)
		}
		fmt.Fprintln(out, "✓ Notice stream cleared")
	}
	return nil
}

func clearJournal(ctx context.Context, path string) (int64, error) {
	j, err := journal.Open(path)
	if err != nil {
		return 0, err
	}
	defer j.Close()
	return j.Reset(ctx)
}

func clearNoticeStream(ctx context.Context, redisURL string) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client.Del(ctx, bus.NoticeStream).Err()
}
