package keys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRetrySchedule retries undelivered keys every five minutes.
const DefaultRetrySchedule = "*/5 * * * *"

// RetryFunc is invoked on every tick of the retry schedule.
type RetryFunc func(ctx context.Context) (*RetryReport, error)

// RetryStatus describes the retry schedule.
type RetryStatus struct {
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run"`
	Schedule  string    `json:"schedule"`
	Remaining int       `json:"remaining"`
	LastError string    `json:"last_error,omitempty"`
}

// RetryScheduler replays the pending key queue on a cron schedule.
type RetryScheduler struct {
	cron   *cron.Cron
	retry  RetryFunc
	logger *slog.Logger

	mu        sync.RWMutex
	entry     cron.EntryID
	schedule  string
	scheduled bool
	running   bool
	lastRun   time.Time
	lastErr   error
	remaining int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// NewRetryScheduler creates a scheduler for retry, usually
// (*Distributor).RetryPending.
func NewRetryScheduler(retry RetryFunc) *RetryScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &RetryScheduler{
		cron:   cron.New(cron.WithParser(newParser())),
		retry:  retry,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// WithLogger sets the logger for the scheduler.
func (s *RetryScheduler) WithLogger(logger *slog.Logger) *RetryScheduler {
	s.logger = logger
	return s
}

// SetSchedule installs cronExpr, replacing any previous schedule.
func (s *RetryScheduler) SetSchedule(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduled {
		s.cron.Remove(s.entry)
		s.scheduled = false
		s.schedule = ""
	}

	entry, err := s.cron.AddFunc(cronExpr, func() {
		s.mu.Lock()
		if s.stopped || s.running {
			s.mu.Unlock()
			return
		}
		s.running = true
		s.wg.Add(1)
		s.mu.Unlock()
		s.run()
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	s.entry = entry
	s.schedule = cronExpr
	s.scheduled = true
	s.logger.Info("scheduled key retry", "schedule", cronExpr, "next_run", s.cron.Entry(entry).Next)
	return nil
}

// Start begins executing the schedule.
func (s *RetryScheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.stopped = false
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("key retry scheduler started", "schedule", s.schedule)
}

// IsRunning returns true if the scheduler has been started and not yet stopped.
func (s *RetryScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop stops the schedule, cancels a running retry and returns a context
// that is done once it has returned.
func (s *RetryScheduler) Stop() context.Context {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// run executes one retry pass. The caller must have set running and
// called wg.Add(1).
func (s *RetryScheduler) run() {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	report, err := s.retry(s.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		s.logger.Error("key retry failed", "duration", time.Since(start), "error", err)
		return
	}
	s.lastRun = time.Now()
	if report != nil {
		s.remaining = report.Remaining
	}
}

// Trigger runs a retry pass now, outside of the schedule.
func (s *RetryScheduler) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}
	if s.running {
		return fmt.Errorf("key retry already running")
	}
	s.running = true
	s.wg.Add(1)
	go s.run()
	return nil
}

// Status returns the current state of the schedule.
func (s *RetryScheduler) Status() RetryStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := RetryStatus{
		Running:   s.running,
		LastRun:   s.lastRun,
		Schedule:  s.schedule,
		Remaining: s.remaining,
	}
	if s.scheduled {
		st.NextRun = s.cron.Entry(s.entry).Next
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	if _, err := newParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
