package keys

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func noopRetry(context.Context) (*RetryReport, error) { return &RetryReport{}, nil }

func TestNewRetryScheduler(t *testing.T) {
	s := NewRetryScheduler(noopRetry)
	if s == nil {
		t.Fatal("NewRetryScheduler() returned nil")
	}
	if s.cron == nil {
		t.Error("cron is nil")
	}
	if s.IsRunning() {
		t.Error("expected scheduler not running before Start")
	}
}

func TestSetSchedule(t *testing.T) {
	s := NewRetryScheduler(noopRetry)

	if err := s.SetSchedule(DefaultRetrySchedule); err != nil {
		t.Fatalf("SetSchedule() = %v", err)
	}
	first := s.entry

	if err := s.SetSchedule("0 3 * * *"); err != nil {
		t.Fatalf("SetSchedule() replacement = %v", err)
	}
	if s.entry == first {
		t.Error("entry ID was not updated after replacement")
	}
	if got := len(s.cron.Entries()); got != 1 {
		t.Errorf("expected 1 cron entry, got %d", got)
	}
	if st := s.Status(); st.Schedule != "0 3 * * *" || st.NextRun.IsZero() {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestSetScheduleInvalid(t *testing.T) {
	s := NewRetryScheduler(noopRetry)
	if err := s.SetSchedule("invalid cron"); err == nil {
		t.Error("SetSchedule() with invalid cron = nil, want error")
	}
}

func TestTrigger(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	s := NewRetryScheduler(func(context.Context) (*RetryReport, error) {
		calls.Add(1)
		close(done)
		return &RetryReport{Remaining: 4}, nil
	})

	if err := s.Trigger(); err != nil {
		t.Fatalf("Trigger() = %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("retry was not invoked")
	}
	<-s.Stop().Done()

	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
	st := s.Status()
	if st.Remaining != 4 || st.LastRun.IsZero() || st.LastError != "" {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestTriggerRecordsError(t *testing.T) {
	s := NewRetryScheduler(func(context.Context) (*RetryReport, error) {
		return nil, errors.New("queue unavailable")
	})
	if err := s.Trigger(); err != nil {
		t.Fatalf("Trigger() = %v", err)
	}
	<-s.Stop().Done()

	if st := s.Status(); st.LastError != "queue unavailable" {
		t.Errorf("expected last error recorded, got %+v", st)
	}
}

func TestTriggerAfterStop(t *testing.T) {
	s := NewRetryScheduler(noopRetry)
	s.Start()
	<-s.Stop().Done()

	if err := s.Trigger(); err == nil {
		t.Error("Trigger() after Stop = nil, want error")
	}
	if s.IsRunning() {
		t.Error("expected scheduler stopped")
	}
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 2 * * *", false},
		{"0 2 * *", true},
		{"every minute", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronExpr(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
