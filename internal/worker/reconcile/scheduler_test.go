package reconcile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AdeChrysler/szen-bi/internal/provision"
)

// --- モック定義 ---

// mockRunner はRunnerのテスト用モック。
type mockRunner struct {
	calls  atomic.Int32
	runFn  func(ctx context.Context) (*provision.Result, error)
	notify chan struct{}
}

func (m *mockRunner) Run(ctx context.Context) (*provision.Result, error) {
	m.calls.Add(1)
	defer func() {
		if m.notify != nil {
			select {
			case m.notify <- struct{}{}:
			default:
			}
		}
	}()
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	return &provision.Result{IdentityID: "user-1", Workspaces: 1}, nil
}

// mockCollector はMetricsCollectorのテスト用モック。
type mockCollector struct {
	mu       sync.Mutex
	outcomes []string
	statuses []int
}

func (m *mockCollector) RecordRun(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockCollector) RecordHTTPStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, code)
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestRunOnce_RecordsSuccess(t *testing.T) {
	runner := &mockRunner{}
	collector := &mockCollector{}
	logger, _ := newTestLogger()
	s := NewScheduler(runner, collector, logger, 0)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if runner.calls.Load() != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls.Load())
	}
	if len(collector.outcomes) != 1 || collector.outcomes[0] != "success" {
		t.Errorf("outcomes = %v, want [success]", collector.outcomes)
	}
}

func TestRunOnce_RecordsFailure(t *testing.T) {
	injected := errors.New("database is down")
	runner := &mockRunner{runFn: func(context.Context) (*provision.Result, error) { return nil, injected }}
	collector := &mockCollector{}
	logger, _ := newTestLogger()
	s := NewScheduler(runner, collector, logger, 0)

	err := s.RunOnce(context.Background())
	if !errors.Is(err, injected) {
		t.Fatalf("err = %v, want %v", err, injected)
	}
	if len(collector.outcomes) != 1 || collector.outcomes[0] != "failure" {
		t.Errorf("outcomes = %v, want [failure]", collector.outcomes)
	}
}

func TestRunOnce_NilCollector(t *testing.T) {
	logger, _ := newTestLogger()
	s := NewScheduler(&mockRunner{}, nil, logger, 0)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
}

func TestRunOnce_MinGapHonoursCancellation(t *testing.T) {
	runner := &mockRunner{}
	logger, _ := newTestLogger()
	s := NewScheduler(runner, nil, logger, time.Hour)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("first RunOnce returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.RunOnce(ctx); err == nil {
		t.Fatal("second RunOnce within the minimum gap should wait and fail on deadline")
	}
	if runner.calls.Load() != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls.Load())
	}
}

func TestTrigger_Coalesces(t *testing.T) {
	logger, _ := newTestLogger()
	s := NewScheduler(&mockRunner{}, nil, logger, 0)

	if !s.Trigger() {
		t.Error("first Trigger should be accepted")
	}
	if s.Trigger() {
		t.Error("second Trigger should be coalesced while one is pending")
	}
}

func TestStart_RunsImmediatelyAndOnTrigger(t *testing.T) {
	runner := &mockRunner{notify: make(chan struct{}, 1)}
	logger, _ := newTestLogger()
	s := NewScheduler(runner, nil, logger, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	waitFor(t, runner.notify)
	s.Trigger()
	waitFor(t, runner.notify)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if n := runner.calls.Load(); n != 2 {
		t.Errorf("runner calls = %d, want 2", n)
	}
}

func TestStart_RetriesAfterFailureWithBackoff(t *testing.T) {
	var failures atomic.Int32
	runner := &mockRunner{
		notify: make(chan struct{}, 1),
		runFn: func(context.Context) (*provision.Result, error) {
			if failures.Add(1) == 1 {
				return nil, errors.New("transient")
			}
			return &provision.Result{IdentityID: "user-1"}, nil
		},
	}
	logger, buf := newTestLogger()
	s := NewScheduler(runner, nil, logger, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	// 間隔を短くすると再試行の遅延も間隔で頭打ちになる
	go func() {
		s.Start(ctx, 20*time.Millisecond)
		close(done)
	}()

	waitFor(t, runner.notify)
	waitFor(t, runner.notify)
	cancel()
	<-done

	if runner.calls.Load() < 2 {
		t.Errorf("runner calls = %d, want >= 2", runner.calls.Load())
	}
	if !bytes.Contains(buf.Bytes(), []byte("consecutive_errors")) {
		t.Errorf("expected failure log, got %s", buf.String())
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run")
	}
}
