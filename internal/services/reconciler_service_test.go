package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rifaplay/raffle-backend/internal/models"
	"github.com/rifaplay/raffle-backend/internal/realtime"
)

func newReconcilerFixture(raffles []*models.Raffle, paidPerRaffle int) (*ReconcilerService, *fakeRaffleRepo, *fakePublisher, *fakeStarter) {
	users := newFakeUserRepo()
	repo := newFakeRaffleRepo(raffles...)
	var tickets []*models.Ticket
	for _, r := range raffles {
		tickets = append(tickets, paidTickets(r.ID, users, paidPerRaffle)...)
	}
	ticketRepo := newFakeTicketRepo(tickets...)
	pub := &fakePublisher{}
	starter := newFakeStarter()
	transitions := NewTransitionService(repo, ticketRepo, users, pub, starter, testWaitingWindow)
	svc := NewReconcilerService(repo, transitions, pub, starter, time.Second)
	return svc, repo, pub, starter
}

func TestReevaluateAll(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("sweeps every active raffle", func(t *testing.T) {
		due := singlePrizeRaffle(3, now.Add(-time.Hour)) // closed, should wait
		open := singlePrizeRaffle(10, now.Add(time.Hour))
		done := singlePrizeRaffle(3, now.Add(-time.Hour))
		done.State = models.StateCompleted

		svc, repo, pub, _ := newReconcilerFixture([]*models.Raffle{due, open, done}, 2)

		fired, err := svc.ReevaluateAll(ctx)
		if err != nil {
			t.Fatalf("ReevaluateAll returned error: %v", err)
		}
		if fired != 1 {
			t.Fatalf("fired = %d, want 1", fired)
		}
		if repo.get(due.ID).State != models.StateWaiting {
			t.Error("closed raffle should be waiting")
		}
		if repo.get(open.ID).State != models.StatePublished {
			t.Error("open raffle must stay published")
		}
		if repo.get(done.ID).State != models.StateCompleted {
			t.Error("completed raffle must stay untouched")
		}
		if len(pub.byName(realtime.EventRafflesUpdated)) != 1 {
			t.Error("a sweep that fired should broadcast raffles-updated")
		}
	})

	t.Run("quiet sweep broadcasts nothing", func(t *testing.T) {
		open := singlePrizeRaffle(10, now.Add(time.Hour))
		svc, _, pub, _ := newReconcilerFixture([]*models.Raffle{open}, 2)

		fired, err := svc.ReevaluateAll(ctx)
		if err != nil {
			t.Fatalf("ReevaluateAll returned error: %v", err)
		}
		if fired != 0 {
			t.Fatalf("fired = %d, want 0", fired)
		}
		if len(pub.byName(realtime.EventRafflesUpdated)) != 0 {
			t.Error("no broadcast expected for a quiet sweep")
		}
	})
}

// flakyActiveRepo fails the first FindActive calls and records their times.
type flakyActiveRepo struct {
	*fakeRaffleRepo
	mu    sync.Mutex
	calls []time.Time
	fails int
}

func (f *flakyActiveRepo) FindActive(ctx context.Context) ([]*models.Raffle, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	fail := len(f.calls) <= f.fails
	f.mu.Unlock()
	if fail {
		return nil, errors.New("listing unavailable")
	}
	return f.fakeRaffleRepo.FindActive(ctx)
}

func (f *flakyActiveRepo) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.calls))
	copy(out, f.calls)
	return out
}

func TestRunBacksOffAfterFailedSweep(t *testing.T) {
	repo := &flakyActiveRepo{fakeRaffleRepo: newFakeRaffleRepo(), fails: 1}
	users := newFakeUserRepo()
	pub := &fakePublisher{}
	starter := newFakeStarter()
	transitions := NewTransitionService(repo, newFakeTicketRepo(), users, pub, starter, testWaitingWindow)

	svc := NewReconcilerService(repo, transitions, pub, starter, time.Millisecond)
	svc.backoff = 250 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)
	waitFor(t, 5*time.Second, func() bool { return len(repo.callTimes()) >= 3 })
	cancel()

	calls := repo.callTimes()
	// The failed first sweep waits the backoff, not the interval.
	if gap := calls[1].Sub(calls[0]); gap < svc.backoff {
		t.Errorf("post-error gap = %v, want at least %v", gap, svc.backoff)
	}
	// Once sweeps succeed the loop is back on its normal cadence.
	if gap := calls[2].Sub(calls[1]); gap >= svc.backoff {
		t.Errorf("post-success gap = %v, want under %v", gap, svc.backoff)
	}
}

func TestRecoverLiveBroadcasts(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	stuck := singlePrizeRaffle(3, now.Add(-time.Hour))
	stuck.State = models.StateLive
	idle := singlePrizeRaffle(10, now.Add(time.Hour))

	svc, _, _, starter := newReconcilerFixture([]*models.Raffle{stuck, idle}, 3)

	if err := svc.RecoverLiveBroadcasts(ctx); err != nil {
		t.Fatalf("RecoverLiveBroadcasts returned error: %v", err)
	}
	if len(starter.started) != 1 || starter.started[0] != stuck.ID {
		t.Fatalf("started = %v, want just the stuck raffle", starter.started)
	}

	// A second pass sees the broadcast running and does not stack another.
	if err := svc.RecoverLiveBroadcasts(ctx); err != nil {
		t.Fatalf("RecoverLiveBroadcasts returned error: %v", err)
	}
	if len(starter.started) != 1 {
		t.Fatalf("started = %d, want 1 after the second pass", len(starter.started))
	}
}
