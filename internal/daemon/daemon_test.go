package daemon_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"minutebook/internal/daemon"
	"minutebook/internal/logging"
	"minutebook/internal/pipeline"
	"minutebook/internal/runlock"
	"minutebook/internal/testsupport"
)

type fakeRunner struct {
	calls atomic.Int64
}

func (f *fakeRunner) RunSelective(ctx context.Context) (*pipeline.Report, error) {
	f.calls.Add(1)
	return &pipeline.Report{RunID: "test-run", Mode: "selective"}, nil
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemon.New(cfg, logging.NewNop(), &fakeRunner{}, nil, daemon.Options{Schedule: "not a cron line"})
	if err == nil {
		t.Fatal("expected schedule validation error")
	}
}

func TestRunOnStartExecutesOnePass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{}
	d, err := daemon.New(cfg, logging.NewNop(), runner, nil, daemon.Options{
		Schedule:    "0 3 * * *",
		MetricsBind: "off",
		RunOnStart:  true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, func() bool { return runner.calls.Load() == 1 })
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestScheduledPassSkipsWhenLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	runner := &fakeRunner{}
	d, err := daemon.New(cfg, logging.NewNop(), runner, nil, daemon.Options{
		Schedule:    "0 3 * * *",
		MetricsBind: "off",
		RunOnStart:  true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Give the startup pass time to hit the lock and bail.
	time.Sleep(100 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := runner.calls.Load(); got != 0 {
		t.Fatalf("expected held lock to skip the pass, runner called %d times", got)
	}
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
