package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"wave-platform/internal/models"
	"wave-platform/pkg/logging"
)

type countingRunner struct {
	calls   atomic.Int32
	hold    time.Duration
	err     error
	started chan struct{}
}

func (r *countingRunner) Generate(ctx context.Context) (*models.GridRun, error) {
	if r.calls.Add(1) == 1 && r.started != nil {
		close(r.started)
	}
	if r.hold > 0 {
		select {
		case <-time.After(r.hold):
		case <-ctx.Done():
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &models.GridRun{ID: int64(r.calls.Load())}, nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"0 15 4,10,16,22 * * *", false},
		{"* * * * * *", false},
		{"@every 1h", false},
		{"0 4 * * *", true}, // five fields, no seconds
		{"not a schedule", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := Validate(tt.schedule)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}

func TestNext(t *testing.T) {
	s, err := New("0 15 4,10,16,22 * * *", &countingRunner{}, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	now := time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	if got := s.Next(now); !got.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", now, got, want)
	}
}

func TestRunOnce(t *testing.T) {
	runner := &countingRunner{}
	s, err := New("@every 1h", runner, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}

	boom := errors.New("source down")
	runner.err = boom
	if err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Errorf("RunOnce() error = %v, want %v", err, boom)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunOnce() on cancelled ctx error = %v", err)
	}
	if got := runner.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestStart_RunsUntilCancelled(t *testing.T) {
	runner := &countingRunner{started: make(chan struct{})}
	s, err := New("* * * * * *", runner, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("no pass started within 5s")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestStart_SkipsOverlappingRuns(t *testing.T) {
	runner := &countingRunner{hold: 10 * time.Second, started: make(chan struct{})}
	s, err := New("* * * * * *", runner, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	<-runner.started
	time.Sleep(2500 * time.Millisecond)
	cancel()
	<-done

	if got := runner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 while the first pass was still running", got)
	}
}
