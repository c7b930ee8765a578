package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Ashfaaq98/mispctl/internal/manifest"
)

var (
	watchDir      string
	watchFollow   bool
	watchPatterns string
	watchSettle   time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Create MISP events from manifest files in a directory (optionally keep watching)",
	Long: `Create MISP events from manifest files (YAML or JSON) found in a directory.
Each manifest goes through create-event: existing events are reused, new ones
are created, tagged and given their attributes. A file is processed again
only when its content changes.

Examples:
  # One-shot: process existing manifests and exit
  mispctl watch --dir ./manifests

  # Keep watching and expose Prometheus metrics
  mispctl watch --dir ./manifests --follow --metrics-addr 127.0.0.1:9464`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Directory to read manifests from (required)")
	watchCmd.MarkFlagRequired("dir")

	watchCmd.Flags().BoolVar(&watchFollow, "follow", false, "Keep watching the directory for new or changed manifests")
	watchCmd.Flags().StringVar(&watchPatterns, "pattern", "*.yaml,*.yml,*.json", "Comma-separated glob patterns to match")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 250*time.Millisecond, "Quiet period after a write before a file is processed")

	watchCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while watching")
	viper.BindPFlag("metrics.addr", watchCmd.Flags().Lookup("metrics-addr"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	var patterns []string
	for _, p := range strings.Split(watchPatterns, ",") {
		if s := strings.TrimSpace(p); s != "" {
			patterns = append(patterns, s)
		}
	}

	if addr := rt.cfg.Metrics.Addr; addr != "" && rt.metrics != nil {
		srv := serveMetrics(ctx, addr, rt.metrics.Handler(), rt.logger)
		defer srv.Close()
	}

	w := manifest.NewWatcher(rt.client, manifest.Options{
		Dir:      watchDir,
		Watch:    watchFollow,
		Patterns: patterns,
		Settle:   watchSettle,
		Logger:   rt.logger,
	})

	rt.logger.Info("starting watch",
		zap.String("dir", watchDir), zap.Bool("follow", watchFollow), zap.Strings("patterns", patterns))

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	st := w.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "files=%d events=%d created=%d errors=%d\n",
		st.Files, st.Events, st.Created, st.Errors)
	return nil
}

func serveMetrics(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv
}
