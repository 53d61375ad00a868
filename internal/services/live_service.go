package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rifaplay/raffle-backend/internal/config"
	"github.com/rifaplay/raffle-backend/internal/models"
	"github.com/rifaplay/raffle-backend/internal/realtime"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"
)

// LiveDrawService runs the live drawing broadcast: a fixed-pace reveal of the
// already-selected winners, one countdown per prize. The broadcast is pure
// theater over a committed result, but its duration is a product guarantee;
// nothing here shortens a countdown because a viewer is absent.
type LiveDrawService struct {
	raffleRepo repositories.RaffleRepository
	ticketRepo repositories.TicketRepository
	userRepo   repositories.UserRepository
	winnerRepo repositories.WinnerRepository
	publisher  EventPublisher

	prizeTicks int
	tickEvery  time.Duration

	mu      sync.Mutex
	running map[primitive.ObjectID]context.CancelFunc
	wg      sync.WaitGroup
}

// NewLiveDrawService creates a new LiveDrawService.
func NewLiveDrawService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	userRepo repositories.UserRepository,
	winnerRepo repositories.WinnerRepository,
	publisher EventPublisher,
	draw config.DrawConfig,
) *LiveDrawService {
	return &LiveDrawService{
		raffleRepo: raffleRepo,
		ticketRepo: ticketRepo,
		userRepo:   userRepo,
		winnerRepo: winnerRepo,
		publisher:  publisher,
		prizeTicks: draw.PrizeSeconds,
		tickEvery:  draw.TickInterval(),
		running:    make(map[primitive.ObjectID]context.CancelFunc),
	}
}

// Start launches the broadcast for a raffle in its own goroutine. Starting a
// raffle whose broadcast is already running is a no-op, so double-fired
// transitions and restart recovery cannot stack broadcasts.
func (s *LiveDrawService) Start(raffleID primitive.ObjectID) {
	s.mu.Lock()
	if _, ok := s.running[raffleID]; ok {
		s.mu.Unlock()
		slog.Warn("live broadcast already running", "raffleId", raffleID.Hex())
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running[raffleID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, raffleID)
			s.mu.Unlock()
			cancel()
		}()
		if err := s.run(ctx, raffleID); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("live broadcast aborted", "raffleId", raffleID.Hex(), "error", err)
		}
	}()
}

// IsRunning reports whether a broadcast for the raffle is in flight.
func (s *LiveDrawService) IsRunning(raffleID primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[raffleID]
	return ok
}

// Shutdown cancels every in-flight broadcast and waits for the goroutines to
// drain. Interrupted raffles stay LIVE and are picked up again on restart.
func (s *LiveDrawService) Shutdown() {
	s.mu.Lock()
	for _, cancel := range s.running {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *LiveDrawService) run(ctx context.Context, raffleID primitive.ObjectID) error {
	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}

	stage := 0
	if raffle.Kind == models.KindStaged {
		stage = raffle.CurrentStage
	}
	// The reveal walks the full accumulated winner list: a later stage's
	// broadcast replays earlier stages' winners and re-upserts their records.
	winners := raffle.Winners
	if len(winners) == 0 {
		slog.Warn("live raffle has no winners to reveal", "raffleId", raffleID.Hex(), "stage", stage)
	}

	participants, err := s.participants(ctx, raffleID)
	if err != nil {
		return err
	}

	s.publish(raffleID, realtime.EventDrawingStart, map[string]any{
		"participants": participants,
		"prizeCount":   len(winners),
		"stage":        stage,
	})

	for i, winner := range winners {
		s.publish(raffleID, realtime.EventPrizeDrawBegin, map[string]any{
			"prizeIndex":      i,
			"prizeName":       winner.Prize,
			"durationSeconds": s.prizeTicks,
			"totalPrizes":     len(winners),
			"remaining":       len(winners) - i,
		})

		for sec := s.prizeTicks; sec >= 1; sec-- {
			s.publish(raffleID, realtime.EventTimeTick, map[string]any{
				"prizeIndex": i,
				"remaining":  sec,
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.tickEvery):
			}
		}

		s.publish(raffleID, realtime.EventWinnerAnnounced, map[string]any{
			"prizeIndex": i,
			"winner":     winner,
		})
	}

	s.publish(raffleID, realtime.EventDrawingComplete, map[string]any{
		"winners": winners,
		"stage":   stage,
	})

	if err := s.finish(ctx, raffle, stage, winners); err != nil {
		return err
	}
	return nil
}

// finish advances the raffle past LIVE and then persists the durable winner
// records. The state write comes first: once the reveal ran to completion the
// outcome must stand even if winner persistence needs a retry.
func (s *LiveDrawService) finish(ctx context.Context, raffle *models.Raffle, stage int, winners []models.WinnerEntry) error {
	now := time.Now().UTC()

	var change models.StateChange
	if raffle.Kind == models.KindStaged && !raffle.IsFinalStage(stage) {
		change = models.StateChange{
			State:        models.StatePublished,
			CurrentStage: stage + 1,
			ClearWaiting: true,
		}
	} else {
		change = models.StateChange{State: models.StateCompleted, CompletedAt: &now}
	}

	applied, err := s.raffleRepo.ApplyTransition(ctx, raffle.ID, models.StateLive, change)
	if err != nil {
		return err
	}
	if !applied {
		slog.Warn("post-broadcast transition found raffle moved elsewhere",
			"raffleId", raffle.ID.Hex(), "to", change.State)
	} else {
		s.publish(raffle.ID, realtime.EventStateChanged, map[string]any{
			"state":        change.State,
			"previous":     models.StateLive,
			"currentStage": max(change.CurrentStage, raffle.CurrentStage),
		})
	}

	for _, w := range winners {
		record := &models.Winner{
			RaffleID:     raffle.ID,
			RaffleTitle:  raffle.Title,
			TicketID:     w.TicketID,
			UserID:       w.UserID,
			UserName:     w.UserName,
			UserEmail:    w.UserEmail,
			TicketNumber: w.TicketNumber,
			Prize:        w.Prize,
			Stage:        w.Stage,
			DrawnAt:      w.DrawnAt,
		}
		if err := s.winnerRepo.Upsert(ctx, record); err != nil {
			slog.Error("winner record upsert failed",
				"raffleId", raffle.ID.Hex(), "ticketId", w.TicketID.Hex(), "error", err)
		}
	}
	return nil
}

// participants builds the public reveal roster from paid tickets.
func (s *LiveDrawService) participants(ctx context.Context, raffleID primitive.ObjectID) ([]map[string]any, error) {
	tickets, err := s.ticketRepo.FindPaidByRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(tickets))
	seen := make(map[primitive.ObjectID]struct{}, len(tickets))
	for _, t := range tickets {
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		ids = append(ids, t.UserID)
	}
	users, err := s.userRepo.FindManyByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(tickets))
	for _, t := range tickets {
		name := ""
		if u := users[t.UserID]; u != nil {
			name = u.Name
		}
		out = append(out, map[string]any{
			"ticketNumber": t.Number,
			"userName":     name,
		})
	}
	return out, nil
}

func (s *LiveDrawService) publish(raffleID primitive.ObjectID, event string, payload any) {
	if err := s.publisher.Publish(raffleID.Hex(), event, payload); err != nil {
		slog.Warn("broadcast publish failed", "raffleId", raffleID.Hex(), "event", event, "error", err)
	}
}
