package mongodb

import (
	"context"
	"time"

	"github.com/rifaplay/raffle-backend/internal/models"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WinnerRepository implements the repositories.WinnerRepository interface
type WinnerRepository struct {
	collection *mongo.Collection
}

// NewWinnerRepository creates a new WinnerRepository
func NewWinnerRepository(db *mongo.Database) repositories.WinnerRepository {
	return &WinnerRepository{
		collection: db.Collection("winners"),
	}
}

// Upsert writes a winner keyed by (raffleId, ticketId). A crashed persist
// step can re-run the whole batch without duplicating records.
func (r *WinnerRepository) Upsert(ctx context.Context, winner *models.Winner) error {
	now := time.Now()
	winner.UpdatedAt = now
	filter := bson.M{"raffleId": winner.RaffleID, "ticketId": winner.TicketID}
	update := bson.M{
		"$set": bson.M{
			"raffleTitle":  winner.RaffleTitle,
			"userId":       winner.UserID,
			"userName":     winner.UserName,
			"userEmail":    winner.UserEmail,
			"ticketNumber": winner.TicketNumber,
			"prize":        winner.Prize,
			"stage":        winner.Stage,
			"drawnAt":      winner.DrawnAt,
			"notified":     winner.Notified,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"raffleId":  winner.RaffleID,
			"ticketId":  winner.TicketID,
			"createdAt": now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// FindByRaffleID finds winners by raffle ID
func (r *WinnerRepository) FindByRaffleID(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Winner, error) {
	opts := options.Find().SetSort(bson.M{"drawnAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"raffleId": raffleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var winners []*models.Winner
	if err := cursor.All(ctx, &winners); err != nil {
		return nil, err
	}
	if winners == nil {
		winners = []*models.Winner{}
	}
	return winners, nil
}

// FindRecent finds the most recently drawn winners across all raffles
func (r *WinnerRepository) FindRecent(ctx context.Context, limit int) ([]*models.Winner, error) {
	opts := options.Find().SetSort(bson.M{"drawnAt": -1}).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var winners []*models.Winner
	if err := cursor.All(ctx, &winners); err != nil {
		return nil, err
	}
	if winners == nil {
		winners = []*models.Winner{}
	}
	return winners, nil
}

// Count counts all winners
func (r *WinnerRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
