package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/webbmaffian/go-mpsc/internal/config"
	"github.com/webbmaffian/go-mpsc/internal/load"
	"github.com/webbmaffian/go-mpsc/internal/logging"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one load round and verify delivery",
		RunE:  runLoad,
	}

	flags := cmd.Flags()
	flags.Int("producers", 0, "number of concurrent producers")
	flags.Int("messages", 0, "messages sent by each producer")
	flags.String("spool", "", "spool the channel to this file instead of memory")
	flags.Int("record-size", 0, "spool record size in bytes, including the 12 byte record header")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.Duration("linger", 0, "keep serving metrics this long after the run")

	return cmd
}

func runLoad(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var reg prometheus.Registerer

	if cfg.Metrics.Addr != "" {
		r := prometheus.NewRegistry()
		reg = r
		stop := serveMetrics(cfg.Metrics.Addr, r, log)

		defer func() {
			linger(ctx, cfg.Metrics.Linger)
			stop()
		}()
	}

	res, err := load.Run(ctx, cfg, log, reg)
	printResult(cmd.OutOrStdout(), res)

	if err != nil {
		return err
	}

	if !res.OK() {
		return errors.New("delivery verification failed")
	}

	return nil
}

// Config file values first, then flags that were set explicitly.
func loadConfig(flags *pflag.FlagSet) (cfg *config.Config, err error) {
	cfg = config.Default()

	if path, _ := flags.GetString("config"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return
		}
	}

	if flags.Changed("producers") {
		cfg.Producers, _ = flags.GetInt("producers")
	}

	if flags.Changed("messages") {
		cfg.Messages, _ = flags.GetInt("messages")
	}

	if flags.Changed("spool") {
		cfg.Spool.Path, _ = flags.GetString("spool")
	}

	if flags.Changed("record-size") {
		cfg.Spool.RecordSize, _ = flags.GetInt("record-size")
	}

	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}

	if flags.Changed("linger") {
		cfg.Metrics.Linger, _ = flags.GetDuration("linger")
	}

	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return
}

func serveMetrics(addr string, reg *prometheus.Registry, log logr.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Serving metrics", "addr", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error(err, "Failed to shut down metrics server")
		}
	}
}

func linger(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func printResult(w io.Writer, res load.Result) {
	status := color.New(color.FgGreen, color.Bold).Sprint("OK")

	if !res.OK() {
		status = color.New(color.FgRed, color.Bold).Sprint("FAILED")
	}

	fmt.Fprintf(w, "%s  %d producers, %d/%d messages in %s\n", status, res.Producers, res.Received, res.Expected, res.Elapsed.Round(time.Millisecond))

	if res.Duplicates > 0 || res.OutOfOrder > 0 || res.Missing > 0 {
		fmt.Fprintf(w, "    duplicates: %d, out of order: %d, missing: %d\n", res.Duplicates, res.OutOfOrder, res.Missing)
	}
}
