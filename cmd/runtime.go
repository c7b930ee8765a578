package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ashfaaq98/mispctl/internal/bus"
	"github.com/Ashfaaq98/mispctl/internal/journal"
	"github.com/Ashfaaq98/mispctl/internal/logger"
	"github.com/Ashfaaq98/mispctl/internal/metrics"
	"github.com/Ashfaaq98/mispctl/internal/misp"
)

// runtime holds everything a MISP command needs, built from the config.
type runtime struct {
	cfg     Config
	logger  *zap.Logger
	client  *misp.Client
	journal *journal.Journal
	bus     bus.Bus
	metrics *metrics.Recorder
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	return buildRuntime(GetConfig(), cmd.Name())
}

func buildRuntime(cfg Config, name string) (*runtime, error) {
	if err := cfg.MISP.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:    cfg,
		logger: log.With(zap.String("command", name)),
	}

	opts := []misp.InvokerOption{
		misp.WithHTTPClient(misp.NewHTTPClient(cfg.MISP.Timeout, cfg.MISP.VerifyTLS)),
		misp.WithLogger(rt.logger),
	}
	if cfg.Metrics.Addr != "" {
		rt.metrics = metrics.NewRecorder(cfg.MISP.URL)
		opts = append(opts, misp.WithRecorder(rt.metrics))
	}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		rt.journal = j
		opts = append(opts, misp.WithRecorder(j))
	}

	rt.bus = bus.NewBus(cfg.Redis.URL, rt.logger)

	client, err := misp.NewClient(cfg.MISP.URL, cfg.MISP.Key,
		misp.WithInvoker(misp.NewInvoker(opts...)),
		misp.WithNotifier(rt.bus),
		misp.WithClientLogger(rt.logger))
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.client = client
	return rt, nil
}

// Close releases the journal and bus and flushes the logger.
func (rt *runtime) Close() {
	if rt.bus != nil {
		_ = rt.bus.Close()
	}
	if rt.journal != nil {
		_ = rt.journal.Close()
	}
	_ = rt.logger.Sync()
}

// printResult writes a successful body as indented JSON to out, or the
// classification of a failed call to errOut.
func printResult(out, errOut io.Writer, res *misp.Result) {
	if !res.OK() {
		fmt.Fprintf(errOut, "call %s", res.Kind)
		if code := res.StatusCode(); code != 0 {
			fmt.Fprintf(errOut, " (HTTP %d)", code)
		}
		if res.Err != nil {
			fmt.Fprintf(errOut, ": %v", res.Err)
		}
		fmt.Fprintln(errOut)
		return
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, res.Body(), "", "  "); err != nil {
		out.Write(res.Body())
		fmt.Fprintln(out)
		return
	}
	buf.WriteTo(out)
	fmt.Fprintln(out)
}
