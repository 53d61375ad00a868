package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rifaplay/raffle-backend/internal/models"
	"github.com/rifaplay/raffle-backend/internal/realtime"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

var (
	// ErrSalesClosed means the raffle is not accepting purchases right now.
	ErrSalesClosed = errors.New("ticket sales are closed")
	// ErrNumberTaken means a requested ticket number is already confirmed for
	// another buyer.
	ErrNumberTaken = errors.New("ticket number already taken")
	// ErrAlreadyConfirmed guards a second approval of the same ticket.
	ErrAlreadyConfirmed = errors.New("ticket payment already confirmed")
)

// TicketService handles purchases and payment confirmation. Approving a
// payment is the event that can tip a raffle into WAITING, so approval ends
// with a lifecycle evaluation.
type TicketService struct {
	ticketRepo  repositories.TicketRepository
	raffleRepo  repositories.RaffleRepository
	transitions *TransitionService
	publisher   EventPublisher
}

// NewTicketService creates a new TicketService.
func NewTicketService(
	ticketRepo repositories.TicketRepository,
	raffleRepo repositories.RaffleRepository,
	transitions *TransitionService,
	publisher EventPublisher,
) *TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		raffleRepo:  raffleRepo,
		transitions: transitions,
		publisher:   publisher,
	}
}

// Purchase reserves numbered tickets for a buyer. The tickets start
// unconfirmed; they only count toward thresholds after approval.
func (s *TicketService) Purchase(ctx context.Context, raffleID, userID primitive.ObjectID, numbers []int, method models.PaymentMethod) ([]*models.Ticket, error) {
	if len(numbers) == 0 {
		return nil, ErrInvalidInput
	}
	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.State != models.StatePublished || raffle.SalesPaused {
		return nil, ErrSalesClosed
	}

	for _, n := range numbers {
		if n < 1 || n > raffle.TotalTickets {
			return nil, ErrInvalidInput
		}
		taken, err := s.ticketRepo.PaidNumberTaken(ctx, raffleID, n, primitive.NilObjectID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrNumberTaken
		}
	}

	now := time.Now().UTC()
	tickets := make([]*models.Ticket, 0, len(numbers))
	for _, n := range numbers {
		ticket := &models.Ticket{
			RaffleID:    raffleID,
			UserID:      userID,
			Number:      n,
			PricePaid:   raffle.TicketPrice,
			Method:      method,
			Status:      models.TicketActive,
			PurchasedAt: now,
		}
		if err := s.ticketRepo.Create(ctx, ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// Approve confirms a ticket payment, refreshes the raffle's progress fields
// and immediately re-evaluates the lifecycle; a threshold crossed by this
// approval fires its transition here, not on the next reconcile sweep.
func (s *TicketService) Approve(ctx context.Context, ticketID primitive.ObjectID, receiptNumber string) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.PaymentConfirmed {
		return nil, ErrAlreadyConfirmed
	}

	taken, err := s.ticketRepo.PaidNumberTaken(ctx, ticket.RaffleID, ticket.Number, ticket.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNumberTaken
	}

	if err := s.ticketRepo.ConfirmPayment(ctx, ticketID, receiptNumber); err != nil {
		return nil, err
	}
	ticket.PaymentConfirmed = true
	ticket.ReceiptNumber = receiptNumber

	if err := s.refreshProgress(ctx, ticket.RaffleID); err != nil {
		slog.Warn("progress refresh failed", "raffleId", ticket.RaffleID.Hex(), "error", err)
	}

	if _, err := s.transitions.Evaluate(ctx, ticket.RaffleID); err != nil {
		slog.Error("post-approval evaluation failed", "raffleId", ticket.RaffleID.Hex(), "error", err)
	}

	if err := s.publisher.Broadcast(realtime.EventRafflesUpdated, nil); err != nil {
		slog.Warn("raffles-updated broadcast failed", "error", err)
	}
	return ticket, nil
}

// Reject deletes an unconfirmed ticket, freeing its number.
func (s *TicketService) Reject(ctx context.Context, ticketID primitive.ObjectID) error {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.PaymentConfirmed {
		return ErrAlreadyConfirmed
	}
	return s.ticketRepo.Delete(ctx, ticketID)
}

// Pending lists tickets awaiting payment review for a raffle.
func (s *TicketService) Pending(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error) {
	return s.ticketRepo.FindPendingByRaffle(ctx, raffleID)
}

func (s *TicketService) refreshProgress(ctx context.Context, raffleID primitive.ObjectID) error {
	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	if err != nil {
		return err
	}
	paid, err := s.ticketRepo.CountPaidByRaffle(ctx, raffleID)
	if err != nil {
		return err
	}
	pct := 0.0
	if raffle.TotalTickets > 0 {
		pct = math.Round(float64(paid)/float64(raffle.TotalTickets)*10000) / 100
	}
	return s.raffleRepo.UpdateProgress(ctx, raffleID, int(paid), pct)
}
