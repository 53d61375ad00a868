package services

import (
	"math/rand"
	"time"

	"github.com/rifaplay/raffle-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SelectWinners draws one winner per prize from the payment-confirmed ticket
// pool, uniformly and without replacement. A ticket can win at most one prize
// within the draw. When the pool runs out before the prize list does, the
// remaining prizes go unassigned.
//
// For staged raffles pass the 1-based stage number; pass 0 for single-prize
// raffles. Purchaser display fields are denormalized from the users map at
// draw time; a missing user leaves them empty rather than failing the draw.
func SelectWinners(r *models.Raffle, tickets []*models.Ticket, users map[primitive.ObjectID]*models.User, stage int, now time.Time, rng *rand.Rand) []models.WinnerEntry {
	prizes := prizeList(r, stage)
	if len(prizes) == 0 || len(tickets) == 0 {
		return nil
	}

	pool := make([]*models.Ticket, len(tickets))
	copy(pool, tickets)

	winners := make([]models.WinnerEntry, 0, len(prizes))
	for _, prize := range prizes {
		if len(pool) == 0 {
			break
		}
		i := rng.Intn(len(pool))
		ticket := pool[i]
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]

		entry := models.WinnerEntry{
			TicketID:      ticket.ID,
			UserID:        ticket.UserID,
			TicketNumber:  ticket.Number,
			Prize:         prize.Name,
			PrizeImageURL: prize.ImageURL,
			PrizeVideoURL: prize.VideoURL,
			Stage:         stage,
			DrawnAt:       now,
		}
		if user := users[ticket.UserID]; user != nil {
			entry.UserName = user.Name
			entry.UserEmail = user.Email
		}
		winners = append(winners, entry)
	}
	return winners
}

// prizeList resolves the prize list for a draw. A stage without an explicit
// prize list still awards a single prize named by its label.
func prizeList(r *models.Raffle, stage int) []models.Prize {
	if stage > 0 {
		s := r.StageByNumber(stage)
		if s == nil {
			return nil
		}
		if len(s.Prizes) > 0 {
			return s.Prizes
		}
		name := s.PrizeLabel
		if name == "" {
			name = s.Name
		}
		if name == "" {
			return nil
		}
		return []models.Prize{{Name: name}}
	}
	return r.Prizes
}
