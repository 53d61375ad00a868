package services

import (
	"context"
	"time"

	"github.com/rifaplay/raffle-backend/internal/models"
	"github.com/rifaplay/raffle-backend/internal/realtime"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// ReconcilerService is the safety net under the event-driven transitions: a
// periodic sweep that re-evaluates every non-terminal raffle, so a missed
// purchase event or a passed deadline is picked up within one interval.
type ReconcilerService struct {
	raffleRepo  repositories.RaffleRepository
	transitions *TransitionService
	publisher   EventPublisher
	live        BroadcastStarter
	interval    time.Duration
	backoff     time.Duration
}

// NewReconcilerService creates a new ReconcilerService.
func NewReconcilerService(
	raffleRepo repositories.RaffleRepository,
	transitions *TransitionService,
	publisher EventPublisher,
	live BroadcastStarter,
	interval time.Duration,
) *ReconcilerService {
	return &ReconcilerService{
		raffleRepo:  raffleRepo,
		transitions: transitions,
		publisher:   publisher,
		live:        live,
		interval:    interval,
		backoff:     time.Minute,
	}
}

// Run sweeps on a fixed cadence until the context is cancelled. A sweep-level
// failure pauses the loop for the longer backoff before retrying.
func (s *ReconcilerService) Run(ctx context.Context) {
	for {
		pause := s.interval
		if _, err := s.ReevaluateAll(ctx); err != nil {
			slog.Error("reconcile sweep failed", "error", err)
			pause = s.backoff
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

// ReevaluateAll evaluates every active raffle once and returns how many
// transitions fired. One raffle's failure never blocks the rest of the sweep.
func (s *ReconcilerService) ReevaluateAll(ctx context.Context) (int, error) {
	raffles, err := s.raffleRepo.FindActive(ctx)
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, r := range raffles {
		before := r.State
		after, err := s.transitions.Evaluate(ctx, r.ID)
		if err != nil {
			slog.Error("reconcile evaluation failed", "raffleId", r.ID.Hex(), "error", err)
			continue
		}
		if after != "" && after != before {
			fired++
		}
	}

	if fired > 0 {
		if err := s.publisher.Broadcast(realtime.EventRafflesUpdated, nil); err != nil {
			slog.Warn("raffles-updated broadcast failed", "error", err)
		}
	}
	return fired, nil
}

// RecoverLiveBroadcasts restarts the reveal for raffles stuck in LIVE after a
// process restart. Interrupted broadcasts replay from the beginning; winners
// were committed before LIVE, so the replayed outcome is identical.
func (s *ReconcilerService) RecoverLiveBroadcasts(ctx context.Context) error {
	raffles, err := s.raffleRepo.FindByState(ctx, models.StateLive)
	if err != nil {
		return err
	}
	for _, r := range raffles {
		if s.live.IsRunning(r.ID) {
			continue
		}
		slog.Warn("recovering interrupted live broadcast", "raffleId", r.ID.Hex(), "stage", r.CurrentStage)
		s.live.Start(r.ID)
	}
	return nil
}
