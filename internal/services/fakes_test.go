package services

import (
	"context"
	"sync"

	"github.com/rifaplay/raffle-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeRaffleRepo is an in-memory RaffleRepository. ApplyTransition mirrors the
// conditional-update semantics of the real store: the write only lands when
// the raffle is still in the expected previous state.
type fakeRaffleRepo struct {
	mu      sync.Mutex
	raffles map[primitive.ObjectID]*models.Raffle
}

func newFakeRaffleRepo(raffles ...*models.Raffle) *fakeRaffleRepo {
	repo := &fakeRaffleRepo{raffles: make(map[primitive.ObjectID]*models.Raffle)}
	for _, r := range raffles {
		if r.ID.IsZero() {
			r.ID = primitive.NewObjectID()
		}
		repo.raffles[r.ID] = r
	}
	return repo
}

func (f *fakeRaffleRepo) get(id primitive.ObjectID) *models.Raffle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raffles[id]
}

func (f *fakeRaffleRepo) Create(_ context.Context, r *models.Raffle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	f.raffles[r.ID] = r
	return nil
}

func (f *fakeRaffleRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *r
	cp.Normalize()
	return &cp, nil
}

func (f *fakeRaffleRepo) FindBySlug(_ context.Context, slug string) (*models.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.raffles {
		if r.Slug == slug {
			cp := *r
			cp.Normalize()
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeRaffleRepo) FindAll(_ context.Context, includeDraft bool, state models.RaffleState) ([]*models.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Raffle
	for _, r := range f.raffles {
		if !includeDraft && r.State == models.StateDraft {
			continue
		}
		if state != "" && r.State.Normalized() != state {
			continue
		}
		cp := *r
		cp.Normalize()
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRaffleRepo) FindActive(_ context.Context) ([]*models.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Raffle
	for _, r := range f.raffles {
		s := r.State.Normalized()
		if s == models.StateDraft || s == models.StateCompleted {
			continue
		}
		cp := *r
		cp.Normalize()
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRaffleRepo) FindByState(_ context.Context, state models.RaffleState) ([]*models.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Raffle
	for _, r := range f.raffles {
		if r.State.Normalized() == state {
			cp := *r
			cp.Normalize()
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRaffleRepo) FindWaiting(_ context.Context) ([]*models.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Raffle
	for _, r := range f.raffles {
		if r.State.Normalized() == models.StateWaiting && r.WaitingUntil != nil {
			cp := *r
			cp.Normalize()
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRaffleRepo) Update(_ context.Context, r *models.Raffle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.raffles[r.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	f.raffles[r.ID] = r
	return nil
}

func (f *fakeRaffleRepo) ApplyTransition(_ context.Context, id primitive.ObjectID, from models.RaffleState, change models.StateChange) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[id]
	if !ok || r.State.Normalized() != from.Normalized() {
		return false, nil
	}
	r.State = change.State
	if change.CurrentStage > 0 {
		r.CurrentStage = change.CurrentStage
	}
	if change.WaitingEnteredAt != nil {
		r.WaitingEnteredAt = change.WaitingEnteredAt
	}
	if change.WaitingUntil != nil {
		r.WaitingUntil = change.WaitingUntil
	}
	if change.LiveEnteredAt != nil {
		r.LiveEnteredAt = change.LiveEnteredAt
	}
	if change.CompletedAt != nil {
		r.CompletedAt = change.CompletedAt
	}
	if change.ClearWaiting {
		r.WaitingEnteredAt = nil
		r.WaitingUntil = nil
		r.LiveEnteredAt = nil
	}
	if change.SetWinners {
		r.Winners = change.Winners
	}
	return true, nil
}

func (f *fakeRaffleRepo) SetSalesPaused(_ context.Context, id primitive.ObjectID, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	r.SalesPaused = paused
	return nil
}

func (f *fakeRaffleRepo) SetMinTickets(_ context.Context, id primitive.ObjectID, min int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	r.MinTickets = min
	return nil
}

func (f *fakeRaffleRepo) SetState(_ context.Context, id primitive.ObjectID, state models.RaffleState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	r.State = state
	return nil
}

func (f *fakeRaffleRepo) UpdateProgress(_ context.Context, id primitive.ObjectID, sold int, pct float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	r.SoldCount = sold
	r.ProgressPct = pct
	return nil
}

func (f *fakeRaffleRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.raffles[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.raffles, id)
	return nil
}

// fakeTicketRepo is an in-memory TicketRepository.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[primitive.ObjectID]*models.Ticket
}

func newFakeTicketRepo(tickets ...*models.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[primitive.ObjectID]*models.Ticket)}
	for _, t := range tickets {
		if t.ID.IsZero() {
			t.ID = primitive.NewObjectID()
		}
		repo.tickets[t.ID] = t
	}
	return repo
}

func (f *fakeTicketRepo) Create(_ context.Context, t *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	f.tickets[t.ID] = t
	return nil
}

func (f *fakeTicketRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTicketRepo) FindByRaffle(_ context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Ticket
	for _, t := range f.tickets {
		if t.RaffleID == raffleID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) FindPaidByRaffle(_ context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Ticket
	for _, t := range f.tickets {
		if t.RaffleID == raffleID && t.PaymentConfirmed {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) CountPaidByRaffle(_ context.Context, raffleID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.RaffleID == raffleID && t.PaymentConfirmed {
			n++
		}
	}
	return n, nil
}

func (f *fakeTicketRepo) FindPendingByRaffle(_ context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Ticket
	for _, t := range f.tickets {
		if t.RaffleID == raffleID && !t.PaymentConfirmed {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) PaidNumberTaken(_ context.Context, raffleID primitive.ObjectID, number int, exclude primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.RaffleID == raffleID && t.Number == number && t.PaymentConfirmed && t.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTicketRepo) ConfirmPayment(_ context.Context, id primitive.ObjectID, receiptNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	t.PaymentConfirmed = true
	t.ReceiptNumber = receiptNumber
	return nil
}

func (f *fakeTicketRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.tickets, id)
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUserRepo) FindManyByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	f.users[u.ID] = u
	return nil
}

// fakeWinnerRepo is an in-memory WinnerRepository keyed like the real one.
type fakeWinnerRepo struct {
	mu      sync.Mutex
	winners map[[2]primitive.ObjectID]*models.Winner
}

func newFakeWinnerRepo() *fakeWinnerRepo {
	return &fakeWinnerRepo{winners: make(map[[2]primitive.ObjectID]*models.Winner)}
}

func (f *fakeWinnerRepo) Upsert(_ context.Context, w *models.Winner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winners[[2]primitive.ObjectID{w.RaffleID, w.TicketID}] = w
	return nil
}

func (f *fakeWinnerRepo) FindByRaffleID(_ context.Context, raffleID primitive.ObjectID) ([]*models.Winner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Winner
	for key, w := range f.winners {
		if key[0] == raffleID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWinnerRepo) FindRecent(_ context.Context, limit int) ([]*models.Winner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Winner
	for _, w := range f.winners {
		out = append(out, w)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeWinnerRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.winners)), nil
}

// publishedEvent is one recorded call on the fake publisher.
type publishedEvent struct {
	RaffleID string
	Event    string
	Payload  any
}

// fakePublisher records every published and broadcast event in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(raffleID string, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{RaffleID: raffleID, Event: event, Payload: payload})
	return nil
}

func (f *fakePublisher) Broadcast(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Event: event, Payload: payload})
	return nil
}

func (f *fakePublisher) byName(event string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakePublisher) all() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fakeStarter records broadcast start requests without running anything.
type fakeStarter struct {
	mu      sync.Mutex
	started []primitive.ObjectID
	running map[primitive.ObjectID]bool
}

func newFakeStarter() *fakeStarter {
	return &fakeStarter{running: make(map[primitive.ObjectID]bool)}
}

func (f *fakeStarter) Start(raffleID primitive.ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, raffleID)
	f.running[raffleID] = true
}

func (f *fakeStarter) IsRunning(raffleID primitive.ObjectID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[raffleID]
}
