package services

import (
	"context"
	"errors"
	"time"

	"github.com/rifaplay/raffle-backend/internal/models"
	"github.com/rifaplay/raffle-backend/internal/realtime"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	"github.com/rifaplay/raffle-backend/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

var (
	// ErrNotEditable means the raffle left DRAFT and its definition is frozen.
	ErrNotEditable = errors.New("raffle is no longer editable")
	// ErrInvalidState means the requested operation does not apply to the
	// raffle's current lifecycle state.
	ErrInvalidState = errors.New("operation not allowed in current raffle state")
	// ErrInvalidInput flags a request rejected before touching storage.
	ErrInvalidInput = errors.New("invalid input")
)

// RaffleService is the operator surface for raffle definitions: creation,
// publication and the manual controls that sit outside the automatic state
// machine.
type RaffleService struct {
	raffleRepo repositories.RaffleRepository
	ticketRepo repositories.TicketRepository
	userRepo   repositories.UserRepository
	publisher  EventPublisher
}

// NewRaffleService creates a new RaffleService.
func NewRaffleService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	userRepo repositories.UserRepository,
	publisher EventPublisher,
) *RaffleService {
	return &RaffleService{
		raffleRepo: raffleRepo,
		ticketRepo: ticketRepo,
		userRepo:   userRepo,
		publisher:  publisher,
	}
}

// Create stores a new raffle in DRAFT. Drafts are invisible to the public
// surface and to every background loop.
func (s *RaffleService) Create(ctx context.Context, raffle *models.Raffle) error {
	if raffle.Title == "" || raffle.TotalTickets <= 0 || raffle.TicketPrice < 0 {
		return ErrInvalidInput
	}
	if raffle.Kind == "" {
		raffle.Kind = models.KindSinglePrize
	}
	if raffle.Kind == models.KindStaged && len(raffle.Stages) == 0 {
		return ErrInvalidInput
	}
	if raffle.Kind == models.KindSinglePrize && len(raffle.Prizes) == 0 {
		return ErrInvalidInput
	}
	if raffle.MinTickets < 1 {
		raffle.MinTickets = 1
	}
	if raffle.Slug == "" {
		raffle.Slug = utils.Slugify(raffle.Title)
	}

	now := time.Now().UTC()
	raffle.State = models.StateDraft
	raffle.CurrentStage = 0
	raffle.Winners = nil
	raffle.CreatedAt = now
	raffle.UpdatedAt = now
	return s.raffleRepo.Create(ctx, raffle)
}

// Update replaces the raffle definition. Only drafts are editable; once
// published the definition is frozen and only the dedicated controls apply.
func (s *RaffleService) Update(ctx context.Context, id primitive.ObjectID, updated *models.Raffle) (*models.Raffle, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raffle.State != models.StateDraft {
		return nil, ErrNotEditable
	}

	updated.ID = raffle.ID
	updated.State = models.StateDraft
	updated.CreatedAt = raffle.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	if updated.Slug == "" {
		updated.Slug = utils.Slugify(updated.Title)
	}
	if err := s.raffleRepo.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Publish moves a draft to PUBLISHED, opening ticket sales.
func (s *RaffleService) Publish(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raffle.State != models.StateDraft {
		return nil, ErrInvalidState
	}
	if err := s.raffleRepo.SetState(ctx, id, models.StatePublished); err != nil {
		return nil, err
	}
	raffle.State = models.StatePublished

	slog.Info("raffle published", "raffleId", id.Hex(), "slug", raffle.Slug)
	if err := s.publisher.Broadcast(realtime.EventRafflesUpdated, nil); err != nil {
		slog.Warn("raffles-updated broadcast failed", "error", err)
	}
	return raffle, nil
}

// Delete removes a raffle. A live raffle cannot be deleted out from under its
// broadcast.
func (s *RaffleService) Delete(ctx context.Context, id primitive.ObjectID) error {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if raffle.State == models.StateLive {
		return ErrInvalidState
	}
	return s.raffleRepo.Delete(ctx, id)
}

// SetSalesPaused flips the sales-pause flag on a published raffle. Pausing
// also holds back the automatic PUBLISHED to WAITING transition.
func (s *RaffleService) SetSalesPaused(ctx context.Context, id primitive.ObjectID, paused bool) error {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if raffle.State != models.StatePublished {
		return ErrInvalidState
	}
	if err := s.raffleRepo.SetSalesPaused(ctx, id, paused); err != nil {
		return err
	}

	slog.Info("raffle sales pause changed", "raffleId", id.Hex(), "paused", paused)
	if err := s.publisher.Publish(id.Hex(), realtime.EventSalesPausedChanged, map[string]any{"salesPaused": paused}); err != nil {
		slog.Warn("sales-paused-changed publish failed", "raffleId", id.Hex(), "error", err)
	}
	if err := s.publisher.Broadcast(realtime.EventRafflesUpdated, nil); err != nil {
		slog.Warn("raffles-updated broadcast failed", "error", err)
	}
	return nil
}

// AdjustMinTickets changes the minimum ticket target while the raffle is
// still selling or waiting.
func (s *RaffleService) AdjustMinTickets(ctx context.Context, id primitive.ObjectID, min int) error {
	if min < 1 {
		return ErrInvalidInput
	}
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if raffle.State != models.StatePublished && raffle.State != models.StateWaiting {
		return ErrInvalidState
	}
	return s.raffleRepo.SetMinTickets(ctx, id, min)
}

// OverrideState is the operator escape hatch for a wedged raffle. It bypasses
// the automatic conditions but not the structural guards: drafts can only be
// published, and a completed raffle is frozen for good.
func (s *RaffleService) OverrideState(ctx context.Context, id primitive.ObjectID, target models.RaffleState) (*models.Raffle, error) {
	target = target.Normalized()
	if !target.Valid() {
		return nil, ErrInvalidInput
	}
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raffle.State == models.StateCompleted {
		return nil, ErrInvalidState
	}
	if raffle.State == models.StateDraft && target != models.StatePublished {
		return nil, ErrInvalidState
	}
	if target == models.StateDraft {
		return nil, ErrInvalidState
	}

	if err := s.raffleRepo.SetState(ctx, id, target); err != nil {
		return nil, err
	}
	slog.Warn("raffle state manually overridden",
		"raffleId", id.Hex(), "from", raffle.State, "to", target)

	if err := s.publisher.Publish(id.Hex(), realtime.EventStateChanged, map[string]any{
		"state":    target,
		"previous": raffle.State,
		"manual":   true,
	}); err != nil {
		slog.Warn("state-changed publish failed", "raffleId", id.Hex(), "error", err)
	}

	raffle.State = target
	return raffle, nil
}

// List returns raffles for the public or operator surface. Drafts only show
// up when includeDraft is set; pass an empty state for no state filter.
func (s *RaffleService) List(ctx context.Context, includeDraft bool, state models.RaffleState) ([]*models.Raffle, error) {
	return s.raffleRepo.FindAll(ctx, includeDraft, state.Normalized())
}

// Get returns one raffle by id.
func (s *RaffleService) Get(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	return s.raffleRepo.FindByID(ctx, id)
}

// GetBySlug returns one raffle by its public slug.
func (s *RaffleService) GetBySlug(ctx context.Context, slug string) (*models.Raffle, error) {
	return s.raffleRepo.FindBySlug(ctx, slug)
}

// Participants returns the paid entries of a raffle with purchaser names
// attached, the same roster the live broadcast opens with.
func (s *RaffleService) Participants(ctx context.Context, id primitive.ObjectID) ([]map[string]any, error) {
	tickets, err := s.ticketRepo.FindPaidByRaffle(ctx, id)
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
			"purchasedAt":  t.PurchasedAt,
		})
	}
	return out, nil
}
