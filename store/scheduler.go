package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler reloads a store on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	store   *Store
	logger  *slog.Logger
	timeout time.Duration
}

// NewScheduler registers a reload job for spec ("*/30 * * * *",
// "@every 1h", ...). Call Start to begin running it.
func NewScheduler(s *Store, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = s.logger
	}
	sch := &Scheduler{
		cron:    cron.New(),
		store:   s,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
	if _, err := sch.cron.AddFunc(spec, sch.run); err != nil {
		return nil, fmt.Errorf("schedule reload %q: %w", spec, err)
	}
	return sch, nil
}

func (sch *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sch.timeout)
	defer cancel()

	sch.logger.Info("scheduled reload starting")
	if _, err := sch.store.Reload(ctx); err != nil {
		sch.logger.Warn("scheduled reload failed, keeping previous snapshot", slog.Any("error", err))
	}
}

// Start runs the schedule in its own goroutine.
func (sch *Scheduler) Start() { sch.cron.Start() }

// Stop stops the schedule and returns a context that is done once a
// running reload has finished.
func (sch *Scheduler) Stop() context.Context { return sch.cron.Stop() }

// Next returns the next scheduled run, or the zero time if not started.
func (sch *Scheduler) Next() time.Time {
	entries := sch.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
