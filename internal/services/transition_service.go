package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/rifaplay/raffle-backend/internal/models"
	"github.com/rifaplay/raffle-backend/internal/realtime"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"
)

// TransitionService owns the raffle lifecycle state machine. Every automatic
// transition in the system funnels through Evaluate, which re-reads the
// raffle, re-derives the conditions, and persists the move with a conditional
// write so concurrent evaluations cannot double-fire.
type TransitionService struct {
	raffleRepo    repositories.RaffleRepository
	ticketRepo    repositories.TicketRepository
	userRepo      repositories.UserRepository
	publisher     EventPublisher
	live          BroadcastStarter
	waitingWindow time.Duration
	rng           *rand.Rand
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	userRepo repositories.UserRepository,
	publisher EventPublisher,
	live BroadcastStarter,
	waitingWindow time.Duration,
) *TransitionService {
	return &TransitionService{
		raffleRepo:    raffleRepo,
		ticketRepo:    ticketRepo,
		userRepo:      userRepo,
		publisher:     publisher,
		live:          live,
		waitingWindow: waitingWindow,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Evaluate re-derives the raffle's lifecycle conditions from current data and
// applies at most one forward transition. It returns the state the raffle is
// in after the call. A deleted raffle or a lost write race is a silent no-op.
func (s *TransitionService) Evaluate(ctx context.Context, raffleID primitive.ObjectID) (models.RaffleState, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", err
	}

	now := time.Now().UTC()

	switch raffle.State {
	case models.StatePublished:
		if raffle.SalesPaused {
			return raffle.State, nil
		}
		paid, err := s.ticketRepo.CountPaidByRaffle(ctx, raffleID)
		if err != nil {
			return raffle.State, err
		}
		change, ok := checkPublishedToWaiting(raffle, int(paid), now, s.waitingWindow)
		if !ok {
			return raffle.State, nil
		}
		return s.apply(ctx, raffle, change)

	case models.StateWaiting:
		paid, err := s.ticketRepo.CountPaidByRaffle(ctx, raffleID)
		if err != nil {
			return raffle.State, err
		}
		ok := checkWaitingToLive(raffle, int(paid), now)
		if !ok {
			return raffle.State, nil
		}
		change := models.StateChange{State: models.StateLive, LiveEnteredAt: &now}
		if winners, err := s.drawWinnersIfNeeded(ctx, raffle, now); err != nil {
			return raffle.State, err
		} else if winners != nil {
			change.SetWinners = true
			change.Winners = winners
		}
		return s.apply(ctx, raffle, change)
	}

	return raffle.State, nil
}

// apply persists the transition, publishes state-changed, and starts the
// broadcast when the raffle just went live. A false from ApplyTransition
// means another evaluation won the race; this one quietly stands down.
func (s *TransitionService) apply(ctx context.Context, raffle *models.Raffle, change models.StateChange) (models.RaffleState, error) {
	applied, err := s.raffleRepo.ApplyTransition(ctx, raffle.ID, raffle.State, change)
	if err != nil {
		return raffle.State, err
	}
	if !applied {
		slog.Info("transition lost race, standing down",
			"raffleId", raffle.ID.Hex(), "from", raffle.State, "to", change.State)
		return raffle.State, nil
	}

	slog.Info("raffle state transition",
		"raffleId", raffle.ID.Hex(), "from", raffle.State, "to", change.State, "stage", change.CurrentStage)

	payload := map[string]any{
		"state":        change.State,
		"previous":     raffle.State,
		"currentStage": raffle.CurrentStage,
	}
	if change.CurrentStage > 0 {
		payload["currentStage"] = change.CurrentStage
	}
	if change.WaitingUntil != nil {
		payload["waitingUntil"] = change.WaitingUntil
	}
	if err := s.publisher.Publish(raffle.ID.Hex(), realtime.EventStateChanged, payload); err != nil {
		slog.Warn("state-changed publish failed", "raffleId", raffle.ID.Hex(), "error", err)
	}

	if change.State == models.StateLive {
		s.live.Start(raffle.ID)
	}
	return change.State, nil
}

// drawWinnersIfNeeded selects winners for the upcoming live phase unless a
// previous attempt already persisted them. Selection happens before the
// transition write so the broadcast only ever reveals a committed result.
func (s *TransitionService) drawWinnersIfNeeded(ctx context.Context, raffle *models.Raffle, now time.Time) ([]models.WinnerEntry, error) {
	stage := 0
	if raffle.Kind == models.KindStaged {
		stage = raffle.CurrentStage
		if raffle.HasStageWinners(stage) {
			return nil, nil
		}
	} else if len(raffle.Winners) > 0 {
		return nil, nil
	}

	tickets, err := s.ticketRepo.FindPaidByRaffle(ctx, raffle.ID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]primitive.ObjectID, 0, len(tickets))
	seen := make(map[primitive.ObjectID]struct{}, len(tickets))
	for _, t := range tickets {
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		userIDs = append(userIDs, t.UserID)
	}
	users, err := s.userRepo.FindManyByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	drawn := SelectWinners(raffle, tickets, users, stage, now, s.rng)
	if len(drawn) == 0 {
		return nil, nil
	}
	return append(append([]models.WinnerEntry{}, raffle.Winners...), drawn...), nil
}

// checkPublishedToWaiting decides whether a PUBLISHED raffle qualifies for
// WAITING, and with which persisted fields.
//
// Single-prize raffles wait as soon as they sell out or their closing time
// passes. Staged raffles qualify stage by stage: an intermediate stage fires
// on its percentage threshold alone, while the final stage requires both a
// sell-out and the closing time, and every staged entry into WAITING carries
// a fixed deadline after which the drawing starts regardless. A stage whose
// percentage rounds down to a zero-ticket threshold never fires; thresholds
// must be explicit.
func checkPublishedToWaiting(r *models.Raffle, paid int, now time.Time, window time.Duration) (models.StateChange, bool) {
	soldOut := r.TotalTickets > 0 && paid >= r.TotalTickets
	closed := !r.CloseAt.IsZero() && !now.Before(r.CloseAt)

	if r.Kind != models.KindStaged {
		if !soldOut && !closed {
			return models.StateChange{}, false
		}
		return models.StateChange{State: models.StateWaiting, WaitingEnteredAt: &now}, true
	}

	stageNum := r.CurrentStage
	if stageNum == 0 {
		stageNum = 1
	}
	stage := r.StageByNumber(stageNum)
	if stage == nil {
		return models.StateChange{}, false
	}

	if r.IsFinalStage(stageNum) {
		if !soldOut || !closed {
			return models.StateChange{}, false
		}
	} else {
		threshold := int(math.Floor(float64(r.TotalTickets) * stage.Percentage / 100))
		if threshold <= 0 || paid < threshold {
			return models.StateChange{}, false
		}
	}

	until := now.Add(window)
	return models.StateChange{
		State:            models.StateWaiting,
		CurrentStage:     stageNum,
		WaitingEnteredAt: &now,
		WaitingUntil:     &until,
	}, true
}

// checkWaitingToLive decides whether a WAITING raffle may go live.
//
// Single-prize raffles re-verify the entry conditions so a refunded ticket
// during the wait holds the raffle back. Staged raffles go live purely on
// the waiting deadline; their thresholds were settled on entry.
func checkWaitingToLive(r *models.Raffle, paid int, now time.Time) bool {
	if r.Kind == models.KindStaged {
		return r.WaitingUntil != nil && !now.Before(*r.WaitingUntil)
	}
	soldOut := r.TotalTickets > 0 && paid >= r.TotalTickets
	closed := !r.CloseAt.IsZero() && !now.Before(r.CloseAt)
	return soldOut && closed
}
