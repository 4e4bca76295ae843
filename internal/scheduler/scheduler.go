// Package scheduler creates the DAILY page of every service once per
// reporting day and triggers metric generation for it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/illenko/opspages/internal/dates"
	"github.com/illenko/opspages/internal/models"
)

type ServiceLister interface {
	ListAll(ctx context.Context) ([]models.Service, error)
}

type DailyPages interface {
	EnsureDailyPage(ctx context.Context, serviceID int64, day string) (*models.PageCreation, bool, error)
}

type Scheduler struct {
	services ServiceLister
	pages    DailyPages

	schedule string
	loc      *time.Location
	now      func() time.Time

	cron    *cron.Cron
	entryID cron.EntryID
	status  *RunStatus
	mu      sync.RWMutex
}

type RunStatus struct {
	Enabled      bool       `json:"enabled"`
	Schedule     string     `json:"schedule"`
	Running      bool       `json:"running"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastDay      string     `json:"last_day,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	NextRunAt    *time.Time `json:"next_run_at,omitempty"`

	PagesCreated int `json:"pages_created"`
	PagesSkipped int `json:"pages_skipped"`
	Failures     int `json:"failures"`
}

type Config struct {
	Schedule string
	Location *time.Location
	Now      func() time.Time
}

func New(services ServiceLister, pages DailyPages, cfg Config) (*Scheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "30 0 * * *"
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Location == nil {
		cfg.Location = dates.IST
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		services: services,
		pages:    pages,
		schedule: cfg.Schedule,
		loc:      cfg.Location,
		now:      cfg.Now,
		status:   &RunStatus{Schedule: cfg.Schedule},
	}, nil
}

// Start registers the daily job. It returns immediately; the job runs until
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.loc))
	id, err := c.AddFunc(s.schedule, func() {
		s.runLogged(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily pages: %w", err)
	}

	s.mu.Lock()
	s.cron = c
	s.entryID = id
	s.status.Enabled = true
	s.mu.Unlock()

	c.Start()
	slog.Info("starting scheduler", "schedule", s.schedule, "location", s.loc.String())
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.RLock()
	c := s.cron
	s.mu.RUnlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
}

// TriggerRun starts a run in the background for the current reporting day.
func (s *Scheduler) TriggerRun(ctx context.Context) error {
	s.mu.RLock()
	running := s.status.Running
	s.mu.RUnlock()
	if running {
		return ErrRunAlreadyInProgress
	}

	go s.runLogged(context.WithoutCancel(ctx))
	return nil
}

func (s *Scheduler) GetStatus() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := *s.status
	if s.cron != nil {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			st.NextRunAt = &next
		}
	}
	return st
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunAlreadyInProgress) {
		slog.Error("daily page run failed", "error", err)
	}
}

// RunOnce ensures today's DAILY page exists for every service. Services are
// processed one after another; a failing service does not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return ErrRunAlreadyInProgress
	}
	s.status.Running = true
	s.status.LastError = ""
	s.mu.Unlock()

	start := s.now()
	day := dates.Day(start, s.loc).Format(dates.Layout)
	slog.Info("starting daily page run", "day", day)

	var created, skipped int
	var failures []error
	defer func() {
		runErr := errors.Join(failures...)
		s.mu.Lock()
		s.status.Running = false
		s.status.LastRunAt = &start
		s.status.LastDay = day
		s.status.LastDuration = time.Since(start).String()
		s.status.PagesCreated = created
		s.status.PagesSkipped = skipped
		s.status.Failures = len(failures)
		if runErr != nil {
			s.status.LastError = runErr.Error()
		}
		s.mu.Unlock()
	}()

	services, err := s.services.ListAll(ctx)
	if err != nil {
		failures = append(failures, fmt.Errorf("failed to list services: %w", err))
		return failures[0]
	}

	for _, svc := range services {
		res, ok, err := s.pages.EnsureDailyPage(ctx, svc.ID, day)
		if err != nil {
			slog.Error("failed to create daily page", "service_id", svc.ID, "service", svc.Name, "error", err)
			failures = append(failures, fmt.Errorf("service %d: %w", svc.ID, err))
			continue
		}
		if !ok {
			skipped++
			continue
		}
		created++
		if gen := res.MetricGeneration; gen != nil && !gen.Success {
			slog.Warn("metric generation incomplete", "service_id", svc.ID, "page_id", res.Page.ID, "error", gen.Error)
		}
	}

	slog.Info("daily page run complete", "day", day, "created", created, "skipped", skipped, "failures", len(failures))
	return errors.Join(failures...)
}

type runError string

func (e runError) Error() string { return string(e) }

const ErrRunAlreadyInProgress = runError("daily page run already in progress")
