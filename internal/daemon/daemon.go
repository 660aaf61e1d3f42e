// Package daemon runs the archive pipeline on a schedule.
//
// The daemon wakes on a cron expression, runs a selective update pass, and
// exposes pipeline metrics over HTTP. Each scheduled pass takes the same
// exclusive run lock the CLI takes, so a long manual run simply causes the
// scheduled pass to skip.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"minutebook/internal/config"
	"minutebook/internal/logging"
	"minutebook/internal/pipeline"
	"minutebook/internal/runlock"
)

const (
	shutdownTimeout = 10 * time.Second
	pidFileName     = "minutebook.pid"
)

// Runner executes one selective archive pass.
type Runner interface {
	RunSelective(ctx context.Context) (*pipeline.Report, error)
}

// Options configures the daemon runtime.
type Options struct {
	// Schedule is a standard five-field cron expression. Empty falls back
	// to the configured daemon schedule.
	Schedule string
	// MetricsBind is the listen address for the metrics endpoint. Empty
	// falls back to the configured address; "off" disables the listener.
	MetricsBind string
	// RunOnStart triggers a pass immediately instead of waiting for the
	// first scheduled wakeup.
	RunOnStart bool
}

// Daemon owns the scheduler and the metrics listener.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   Runner
	gatherer prometheus.Gatherer
	schedule string
	bind     string
	opts     Options
}

// New validates the schedule and assembles a daemon. The gatherer may be nil
// when no metrics listener is wanted.
func New(cfg *config.Config, logger *slog.Logger, runner Runner, gatherer prometheus.Gatherer, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("daemon: config is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("daemon: runner is required")
	}

	schedule := strings.TrimSpace(opts.Schedule)
	if schedule == "" {
		schedule = cfg.Daemon.Schedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("daemon: parse schedule %q: %w", schedule, err)
	}

	bind := strings.TrimSpace(opts.MetricsBind)
	if bind == "" {
		bind = cfg.Daemon.MetricsBind
	}
	if strings.EqualFold(bind, "off") {
		bind = ""
	}

	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		runner:   runner,
		gatherer: gatherer,
		schedule: schedule,
		bind:     bind,
		opts:     opts,
	}, nil
}

// Run blocks until ctx is cancelled or the metrics listener fails.
func (d *Daemon) Run(ctx context.Context) error {
	pidPath := filepath.Join(d.cfg.Paths.LogDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("daemon: write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	serverErr := make(chan error, 1)
	server := d.startMetricsServer(serverErr)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(d.schedule, func() { d.runOnce(ctx) }); err != nil {
		return fmt.Errorf("daemon: add schedule: %w", err)
	}

	d.logger.Info("daemon started",
		logging.String("schedule", d.schedule),
		logging.String("metrics_bind", d.bind),
		logging.Bool("run_on_start", d.opts.RunOnStart),
	)

	if d.opts.RunOnStart {
		d.runOnce(ctx)
	}
	scheduler.Start()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		runErr = fmt.Errorf("daemon: metrics listener: %w", err)
	}

	d.logger.Info("daemon shutting down")

	// Let an in-flight pass finish before tearing down the listener.
	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(shutdownTimeout):
		d.logger.Warn("scheduled pass did not finish before shutdown deadline")
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("metrics listener shutdown", logging.Error(err))
		}
	}

	return runErr
}

func (d *Daemon) startMetricsServer(errs chan<- error) *http.Server {
	if d.bind == "" || d.gatherer == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:              d.bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	return server
}

func (d *Daemon) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	lock, err := runlock.Acquire(d.cfg.LockPath())
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			d.logger.Warn("another run holds the lock, skipping scheduled pass",
				logging.String("lock_path", d.cfg.LockPath()))
			return
		}
		d.logger.Error("acquire run lock", logging.Error(err))
		return
	}
	defer lock.Release()

	report, err := d.runner.RunSelective(ctx)
	if err != nil {
		d.logger.Error("scheduled pass failed", logging.Error(err))
		return
	}

	processed, partial, failed := report.Counts()
	d.logger.Info("scheduled pass complete",
		logging.String(logging.FieldRunID, report.RunID),
		logging.Int("processed", processed),
		logging.Int("partial", partial),
		logging.Int("failed", failed),
		logging.Int("embedded", report.Embedded),
	)
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
