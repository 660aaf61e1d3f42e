package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"minutebook/internal/daemon"
	"minutebook/internal/pipeline"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var (
		schedule    string
		metricsBind string
		runOnStart  bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled update passes and serve metrics",
		Long: `Run minutebook as a long-lived process.

The daemon runs a selective update pass on a cron schedule and exposes
Prometheus metrics over HTTP. Scheduled passes share the run lock with the
run command, so a concurrent manual run causes the pass to skip.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			st, err := ctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			registry := prometheus.NewRegistry()
			metrics := pipeline.NewMetrics(registry)

			runner, err := ctx.buildRunner(cfg, st, logger, metrics, pipeline.Options{})
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, logger, runner, registry, daemon.Options{
				Schedule:    schedule,
				MetricsBind: metricsBind,
				RunOnStart:  runOnStart,
			})
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return d.Run(runCtx)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression for update passes (default from config)")
	cmd.Flags().StringVar(&metricsBind, "metrics-bind", "", "Metrics listen address, or \"off\" (default from config)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run an update pass immediately at startup")
	return cmd
}
