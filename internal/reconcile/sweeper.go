package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/uweb3bank/cardadmin/internal/notification"
)

// Sweeper periodically syncs every active card so stale balances self-heal,
// including cards whose funding outcome was indeterminate.
type Sweeper struct {
	service  *Service
	notifier notification.Notifier
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewSweeper builds a sweeper driven by the given cron schedule expression.
func NewSweeper(service *Service, notifier notification.Notifier, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		notifier: notifier,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the sweep on the schedule and begins running it.
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return fmt.Errorf("register sync schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info("reconciliation sweep scheduled", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ids, err := s.service.store.ListActiveCardIDs(ctx)
	if err != nil {
		s.logger.Error("reconciliation sweep: list cards", "error", err)
		return
	}

	var failed int
	for _, id := range ids {
		if _, err := s.service.Sync(ctx, id); err != nil {
			failed++
			s.logger.Warn("reconciliation sweep: sync failed", "card_id", id, "error", err)
			if s.notifier != nil {
				_ = s.notifier.Send(ctx, notification.Message{
					Kind:   notification.KindSyncFailure,
					CardID: id,
					Body:   err.Error(),
				})
			}
		}
	}

	s.logger.Info("reconciliation sweep finished", "cards", len(ids), "failed", failed)
}
