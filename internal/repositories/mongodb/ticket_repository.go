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

// TicketRepository implements the repositories.TicketRepository interface
type TicketRepository struct {
	collection *mongo.Collection
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *mongo.Database) repositories.TicketRepository {
	return &TicketRepository{
		collection: db.Collection("tickets"),
	}
}

// Create creates a new ticket
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	if ticket.PurchasedAt.IsZero() {
		ticket.PurchasedAt = time.Now()
	}
	res, err := r.collection.InsertOne(ctx, ticket)
	if err != nil {
		return err
	}
	ticket.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a ticket by ID
func (r *TicketRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindByRaffle finds all tickets of a raffle
func (r *TicketRepository) FindByRaffle(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.findMany(ctx, bson.M{"raffleId": raffleID})
}

// FindPaidByRaffle finds the payment-confirmed tickets of a raffle, the only
// pool eligible for winner selection.
func (r *TicketRepository) FindPaidByRaffle(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.findMany(ctx, bson.M{"raffleId": raffleID, "paymentConfirmed": true})
}

// CountPaidByRaffle counts the payment-confirmed tickets of a raffle
func (r *TicketRepository) CountPaidByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"raffleId": raffleID, "paymentConfirmed": true})
}

// FindPendingByRaffle finds tickets awaiting payment confirmation
func (r *TicketRepository) FindPendingByRaffle(ctx context.Context, raffleID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.findMany(ctx, bson.M{"raffleId": raffleID, "paymentConfirmed": false})
}

// PaidNumberTaken reports whether another confirmed ticket already holds the
// given number within the raffle.
func (r *TicketRepository) PaidNumberTaken(ctx context.Context, raffleID primitive.ObjectID, number int, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"raffleId":         raffleID,
		"number":           number,
		"paymentConfirmed": true,
		"_id":              bson.M{"$ne": exclude},
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ConfirmPayment marks a ticket as paid and records the receipt number
func (r *TicketRepository) ConfirmPayment(ctx context.Context, id primitive.ObjectID, receiptNumber string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"paymentConfirmed": true, "receiptNumber": receiptNumber}})
	return err
}

// Delete deletes a ticket by ID
func (r *TicketRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *TicketRepository) findMany(ctx context.Context, filter bson.M) ([]*models.Ticket, error) {
	opts := options.Find().SetSort(bson.M{"number": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []*models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return tickets, nil
}
