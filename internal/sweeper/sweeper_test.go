package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRunner struct {
	mu     sync.Mutex
	runs   int
	closed int
	err    error
}

func (f *fakeRunner) RunIdleSweep(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return f.closed, f.err
}

func (f *fakeRunner) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func TestRunOnce(t *testing.T) {
	runner := &fakeRunner{closed: 2}
	s := New(runner, time.Minute, nil)

	s.RunOnce(context.Background())
	if runner.runCount() != 1 {
		t.Fatalf("expected 1 run, got %d", runner.runCount())
	}
}

func TestRunOnceSurvivesError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("store unreachable")}
	s := New(runner, time.Minute, nil)

	// A failed sweep is logged, not fatal; the next tick runs again.
	s.RunOnce(context.Background())
	s.RunOnce(context.Background())
	if runner.runCount() != 2 {
		t.Fatalf("expected 2 runs, got %d", runner.runCount())
	}
}

func TestStartStop(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()
}

func TestDefaultInterval(t *testing.T) {
	s := New(&fakeRunner{}, 0, nil)
	if s.interval != 5*time.Minute {
		t.Fatalf("interval = %v, want 5m", s.interval)
	}
}
