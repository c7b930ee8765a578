package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ashfaaq98/mispctl/internal/bus"
	"github.com/Ashfaaq98/mispctl/internal/logger"
	"github.com/Ashfaaq98/mispctl/internal/misp"
)

var (
	noticesGroup    string
	noticesConsumer string
)

// noticesCmd represents the notices command
var noticesCmd = &cobra.Command{
	Use:   "notices",
	Short: "Follow event notices published to Redis",
	Long: `Consume the misp-events Redis stream and print one JSON line per notice.
Notices are published by create-event and watch whenever an event is created
or reused. Requires --redis.

Examples:
  mispctl notices --redis redis://localhost:6379
  mispctl notices --redis redis://localhost:6379 --group soc --consumer triage-1`,
	RunE: runNotices,
}

func init() {
	rootCmd.AddCommand(noticesCmd)

	host, _ := os.Hostname()
	noticesCmd.Flags().StringVar(&noticesGroup, "group", "mispctl", "Consumer group")
	noticesCmd.Flags().StringVar(&noticesConsumer, "consumer", "mispctl-"+host, "Consumer name within the group")
}

func runNotices(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()
	if cfg.Redis.URL == "" {
		return fmt.Errorf("notices requires --redis or MISPCTL_REDIS_URL")
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	b, err := bus.NewRedisBus(cfg.Redis.URL, log)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer b.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	err = b.ReadNotices(ctx, noticesGroup, noticesConsumer, func(ctx context.Context, n misp.EventNotice) error {
		return enc.Encode(n)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("notice stream stopped", zap.Error(err))
		return err
	}
	return nil
}
