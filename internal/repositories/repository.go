package repositories

import (
	"context"

	"github.com/rifaplay/raffle-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleRepository defines the interface for raffle data operations
type RaffleRepository interface {
	Create(ctx context.Context, raffle *models.Raffle) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error)
	FindBySlug(ctx context.Context, slug string) (*models.Raffle, error)
	FindAll(ctx context.Context, includeDraft bool, state models.RaffleState) ([]*models.Raffle, error)
	// FindActive returns every raffle not in a terminal state (the
	// reconciler's working set).
	FindActive(ctx context.Context) ([]*models.Raffle, error)
	FindByState(ctx context.Context, state models.RaffleState) ([]*models.Raffle, error)
	// FindWaiting returns raffles in WAITING that carry a waiting deadline.
	FindWaiting(ctx context.Context) ([]*models.Raffle, error)
	Update(ctx context.Context, raffle *models.Raffle) error
	// ApplyTransition conditionally persists a lifecycle transition. The
	// write is filtered on the previous state; it reports false when the
	// raffle was concurrently moved elsewhere (the caller lost the race).
	ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.RaffleState, change models.StateChange) (bool, error)
	SetSalesPaused(ctx context.Context, id primitive.ObjectID, paused bool) error
	SetMinTickets(ctx context.Context, id primitive.ObjectID, min int) error
	SetState(ctx context.Context, id primitive.ObjectID, state models.RaffleState) error
	UpdateProgress(ctx context.Context, id primitive.ObjectID, sold int, pct float64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TicketRepository defines the interface for ticket data operations
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	FindByRaffle(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error)
	FindPaidByRaffle(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error)
	CountPaidByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int64, error)
	FindPendingByRaffle(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error)
	// PaidNumberTaken reports whether another confirmed ticket already holds
	// the given number within the raffle.
	PaidNumberTaken(ctx context.Context, raffleID primitive.ObjectID, number int, exclude primitive.ObjectID) (bool, error)
	ConfirmPayment(ctx context.Context, id primitive.ObjectID, receiptNumber string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// WinnerRepository defines the interface for durable winner records
type WinnerRepository interface {
	// Upsert writes a winner keyed by (raffleId, ticketId). Re-running the
	// persist step after a crash does not duplicate records.
	Upsert(ctx context.Context, winner *models.Winner) error
	FindByRaffleID(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Winner, error)
	FindRecent(ctx context.Context, limit int) ([]*models.Winner, error)
	Count(ctx context.Context) (int64, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	Update(ctx context.Context, user *models.User) error
}
