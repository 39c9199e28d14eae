// Package alerts sends the weekly low-stock digest.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/spares/internal/analytics"
	"github.com/erazemk/spares/internal/metrics"
	"github.com/erazemk/spares/internal/model"
)

// Source loads the current inventory.
type Source interface {
	Items(ctx context.Context) ([]model.Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.Item, error)

// Items calls f.
func (f SourceFunc) Items(ctx context.Context) ([]model.Item, error) { return f(ctx) }

// Config controls when and to whom digests are sent.
type Config struct {
	Weekday    time.Weekday
	Hour       int
	Location   *time.Location
	Recipients []string
}

// Result describes one digest run.
type Result struct {
	At         time.Time `json:"at"`
	Sent       bool      `json:"sent"`
	Items      int       `json:"items"`
	Recipients []string  `json:"recipients"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// SchedulerStatus is reported by the API.
type SchedulerStatus struct {
	Running     bool       `json:"running"`
	Schedule    string     `json:"schedule"`
	Recipients  []string   `json:"recipients"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	LastRun     *Result    `json:"lastRun,omitempty"`
	Description string     `json:"description"`
}

// Scheduler fires the digest once a week. It has an explicit Start/Stop
// lifecycle and RunNow may be called at any time, scheduled or not.
type Scheduler struct {
	cfg    Config
	source Source
	mailer Mailer
	now    func() time.Time

	runMu sync.Mutex // serializes runs

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	next    time.Time
	last    *Result
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(cfg Config, source Source, mailer Mailer) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Hour < 0 || cfg.Hour > 23 {
		cfg.Hour = 9
	}
	return &Scheduler{cfg: cfg, source: source, mailer: mailer, now: time.Now}
}

// NextRun returns the first scheduled instant strictly after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	local := t.In(s.cfg.Location)
	days := (int(s.cfg.Weekday) - int(local.Weekday()) + 7) % 7
	next := time.Date(local.Year(), local.Month(), local.Day()+days, s.cfg.Hour, 0, 0, 0, s.cfg.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Start launches the timer loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.next = s.NextRun(s.now())

	go s.loop(ctx, s.stopped)

	slog.Info("alert scheduler started",
		"schedule", s.describe(), "next", s.next.Format(time.RFC3339), "recipients", len(s.cfg.Recipients))
}

// Stop halts the timer loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel, s.stopped = nil, nil
	if cancel != nil {
		cancel()
	}
	s.next = time.Time{}
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	<-stopped
	slog.Info("alert scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	for {
		s.mu.Lock()
		wait := s.next.Sub(s.now())
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		if _, err := s.RunNow(ctx); err != nil {
			slog.Error("weekly low stock digest failed", "error", err)
		}

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		s.next = s.NextRun(s.now())
		s.mu.Unlock()
	}
}

// RunNow builds and sends the digest immediately. It skips sending when no
// recipients are configured or nothing is low on stock.
func (s *Scheduler) RunNow(ctx context.Context) (Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res := Result{At: s.now().In(s.cfg.Location), Recipients: s.cfg.Recipients}
	err := s.run(ctx, &res)
	if err != nil {
		res.Error = err.Error()
		metrics.AlertRuns.WithLabelValues("error").Inc()
		metrics.PartialFailures.WithLabelValues("alert_mail").Inc()
	} else if res.Sent {
		metrics.AlertRuns.WithLabelValues("sent").Inc()
	} else {
		metrics.AlertRuns.WithLabelValues("skipped").Inc()
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()
	return res, err
}

func (s *Scheduler) run(ctx context.Context, res *Result) error {
	if len(s.cfg.Recipients) == 0 {
		res.Reason = "no recipients configured"
		slog.Warn("skipping low stock digest", "reason", res.Reason)
		return nil
	}

	items, err := s.source.Items(ctx)
	if err != nil {
		return fmt.Errorf("loading items: %w", err)
	}
	low := analytics.LowStock(items)
	res.Items = len(low)
	if len(low) == 0 {
		res.Reason = "no low stock items"
		slog.Info("skipping low stock digest", "reason", res.Reason)
		return nil
	}

	digest := NewDigest(low, res.At)
	html, err := digest.HTML()
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, Mail{
		To:      s.cfg.Recipients,
		Subject: digest.Subject(),
		Text:    digest.Text(),
		HTML:    html,
	})
	if err != nil {
		return err
	}

	res.Sent = true
	slog.Info("low stock digest sent", "items", len(low), "recipients", len(s.cfg.Recipients))
	return nil
}

// Status reports whether the scheduler is running and its last result.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SchedulerStatus{
		Running:     s.cancel != nil,
		Schedule:    fmt.Sprintf("0 %d * * %d", s.cfg.Hour, int(s.cfg.Weekday)),
		Recipients:  s.cfg.Recipients,
		Description: s.describe(),
	}
	if st.Recipients == nil {
		st.Recipients = []string{}
	}
	if !s.next.IsZero() {
		next := s.next
		st.NextRun = &next
	}
	if s.last != nil {
		last := *s.last
		st.LastRun = &last
	}
	return st
}

func (s *Scheduler) describe() string {
	return fmt.Sprintf("Every %s at %02d:00 %s", s.cfg.Weekday, s.cfg.Hour, s.cfg.Location)
}
