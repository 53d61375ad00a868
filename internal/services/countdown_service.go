package services

import (
	"context"
	"time"

	"github.com/rifaplay/raffle-backend/internal/realtime"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// CountdownService broadcasts the remaining waiting-window seconds for every
// WAITING raffle, once per interval. It is a pure producer; the reconciler,
// not this loop, performs the actual deadline transition.
type CountdownService struct {
	raffleRepo repositories.RaffleRepository
	publisher  EventPublisher
	interval   time.Duration
	backoff    time.Duration
}

// NewCountdownService creates a new CountdownService.
func NewCountdownService(raffleRepo repositories.RaffleRepository, publisher EventPublisher, interval time.Duration) *CountdownService {
	return &CountdownService{
		raffleRepo: raffleRepo,
		publisher:  publisher,
		interval:   interval,
		backoff:    5 * time.Second,
	}
}

// Run loops until the context is cancelled. A storage error pauses the loop
// briefly instead of killing it.
func (s *CountdownService) Run(ctx context.Context) {
	for {
		pause := s.interval
		if err := s.Tick(ctx); err != nil {
			slog.Error("countdown tick failed", "error", err)
			pause = s.backoff
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

// Tick publishes one countdown-tick per waiting raffle. Remaining time is
// clamped at zero; clients never see a negative countdown.
func (s *CountdownService) Tick(ctx context.Context) error {
	raffles, err := s.raffleRepo.FindWaiting(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, r := range raffles {
		if r.WaitingUntil == nil {
			continue
		}
		remaining := int(r.WaitingUntil.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		err := s.publisher.Publish(r.ID.Hex(), realtime.EventCountdownTick, map[string]any{
			"remaining":    remaining,
			"waitingUntil": r.WaitingUntil,
			"currentStage": r.CurrentStage,
			"kind":         r.Kind,
		})
		if err != nil {
			slog.Warn("countdown publish failed", "raffleId", r.ID.Hex(), "error", err)
		}
	}
	return nil
}
