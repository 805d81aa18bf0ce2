package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/paperstack-io/paperstack/internal/core"
)

// monthlySpec fires on the first day of each month at midnight.
const monthlySpec = "0 0 1 * *"

// ArchiveSweeper reclassifies stale documents on a fixed schedule. A failing
// or panicking run is logged and dropped; the next scheduled run proceeds
// independently.
type ArchiveSweeper struct {
	store  core.DocumentStore
	maxAge time.Duration
	cron   *cron.Cron
	log    *zap.Logger
}

func NewArchiveSweeper(store core.DocumentStore, maxAge time.Duration, log *zap.Logger) *ArchiveSweeper {
	return &ArchiveSweeper{store: store, maxAge: maxAge, log: log}
}

// Start performs one immediate sweep in the background (it never delays
// readiness) and then schedules the monthly run.
func (s *ArchiveSweeper) Start() error {
	go s.RunOnce()

	c := cron.New()
	if _, err := c.AddFunc(monthlySpec, s.RunOnce); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *ArchiveSweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce archives every active document older than the staleness cutoff.
// It must never crash the host process.
func (s *ArchiveSweeper) RunOnce() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("archive sweep panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.maxAge)
	n, err := s.store.ArchiveOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error("archive sweep failed", zap.Error(err))
		return
	}
	s.log.Info("archive sweep complete",
		zap.Time("cutoff", cutoff),
		zap.Int64("archived", n))
}
