package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rifaplay/raffle-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSelectWinners(t *testing.T) {
	now := time.Now().UTC()

	t.Run("one winner per prize, no ticket wins twice", func(t *testing.T) {
		users := newFakeUserRepo()
		raffle := singlePrizeRaffle(20, now.Add(time.Hour))
		raffle.Prizes = []models.Prize{
			{Name: "First"}, {Name: "Second"}, {Name: "Third"},
		}
		tickets := paidTickets(raffle.ID, users, 20)
		pool, _ := users.FindManyByIDs(context.Background(), userIDsOf(tickets))

		winners := SelectWinners(raffle, tickets, pool, 0, now, rand.New(rand.NewSource(1)))
		if len(winners) != 3 {
			t.Fatalf("winners = %d, want 3", len(winners))
		}
		seen := make(map[primitive.ObjectID]bool)
		for i, w := range winners {
			if seen[w.TicketID] {
				t.Fatalf("ticket %s won twice", w.TicketID.Hex())
			}
			seen[w.TicketID] = true
			if w.Prize != raffle.Prizes[i].Name {
				t.Errorf("winner %d prize = %q, want %q", i, w.Prize, raffle.Prizes[i].Name)
			}
			if w.DrawnAt != now {
				t.Errorf("winner %d drawnAt = %v, want %v", i, w.DrawnAt, now)
			}
		}
	})

	t.Run("pool smaller than prize list degrades", func(t *testing.T) {
		users := newFakeUserRepo()
		raffle := singlePrizeRaffle(20, now.Add(time.Hour))
		raffle.Prizes = []models.Prize{{Name: "First"}, {Name: "Second"}, {Name: "Third"}}
		tickets := paidTickets(raffle.ID, users, 2)
		pool, _ := users.FindManyByIDs(context.Background(), userIDsOf(tickets))

		winners := SelectWinners(raffle, tickets, pool, 0, now, rand.New(rand.NewSource(1)))
		if len(winners) != 2 {
			t.Fatalf("winners = %d, want 2", len(winners))
		}
	})

	t.Run("empty pool yields no winners", func(t *testing.T) {
		raffle := singlePrizeRaffle(20, now.Add(time.Hour))
		winners := SelectWinners(raffle, nil, nil, 0, now, rand.New(rand.NewSource(1)))
		if winners != nil {
			t.Fatalf("winners = %v, want nil", winners)
		}
	})

	t.Run("stage draw uses the stage prize list", func(t *testing.T) {
		users := newFakeUserRepo()
		raffle := stagedRaffle(20, now.Add(time.Hour), models.Stage{
			Number:     1,
			Percentage: 50,
			PrizeLabel: "Stage Label",
			Prizes:     []models.Prize{{Name: "Stage Prize A"}, {Name: "Stage Prize B"}},
		})
		tickets := paidTickets(raffle.ID, users, 10)
		pool, _ := users.FindManyByIDs(context.Background(), userIDsOf(tickets))

		winners := SelectWinners(raffle, tickets, pool, 1, now, rand.New(rand.NewSource(1)))
		if len(winners) != 2 {
			t.Fatalf("winners = %d, want 2", len(winners))
		}
		for _, w := range winners {
			if w.Stage != 1 {
				t.Errorf("winner stage = %d, want 1", w.Stage)
			}
		}
	})

	t.Run("stage without prizes falls back to its label", func(t *testing.T) {
		users := newFakeUserRepo()
		raffle := stagedRaffle(20, now.Add(time.Hour), models.Stage{
			Number:     1,
			Percentage: 50,
			PrizeLabel: "Consolation",
		})
		tickets := paidTickets(raffle.ID, users, 10)
		pool, _ := users.FindManyByIDs(context.Background(), userIDsOf(tickets))

		winners := SelectWinners(raffle, tickets, pool, 1, now, rand.New(rand.NewSource(1)))
		if len(winners) != 1 {
			t.Fatalf("winners = %d, want 1", len(winners))
		}
		if winners[0].Prize != "Consolation" {
			t.Errorf("prize = %q, want Consolation", winners[0].Prize)
		}
	})

	t.Run("missing user leaves display fields empty", func(t *testing.T) {
		raffle := singlePrizeRaffle(20, now.Add(time.Hour))
		ticket := &models.Ticket{
			ID:               primitive.NewObjectID(),
			RaffleID:         raffle.ID,
			UserID:           primitive.NewObjectID(),
			Number:           7,
			PaymentConfirmed: true,
		}

		winners := SelectWinners(raffle, []*models.Ticket{ticket}, nil, 0, now, rand.New(rand.NewSource(1)))
		if len(winners) != 1 {
			t.Fatalf("winners = %d, want 1", len(winners))
		}
		if winners[0].UserName != "" || winners[0].UserEmail != "" {
			t.Error("display fields must stay empty for an unknown user")
		}
		if winners[0].TicketNumber != 7 {
			t.Errorf("ticketNumber = %d, want 7", winners[0].TicketNumber)
		}
	})
}

func userIDsOf(tickets []*models.Ticket) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.UserID)
	}
	return ids
}
