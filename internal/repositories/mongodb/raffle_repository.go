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

// RaffleRepository implements the repositories.RaffleRepository interface
type RaffleRepository struct {
	collection *mongo.Collection
}

// NewRaffleRepository creates a new RaffleRepository
func NewRaffleRepository(db *mongo.Database) repositories.RaffleRepository {
	return &RaffleRepository{
		collection: db.Collection("raffles"),
	}
}

// Create creates a new raffle
func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	raffle.CreatedAt = time.Now()
	raffle.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, raffle)
	if err != nil {
		return err
	}
	raffle.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a raffle by ID
func (r *RaffleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raffle)
	if err != nil {
		return nil, err
	}
	raffle.Normalize()
	return &raffle, nil
}

// FindBySlug finds a raffle by its landing slug
func (r *RaffleRepository) FindBySlug(ctx context.Context, slug string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&raffle)
	if err != nil {
		return nil, err
	}
	raffle.Normalize()
	return &raffle, nil
}

// FindAll finds raffles for listing. Drafts are hidden unless requested; an
// optional state narrows the result. Legacy state aliases are matched too.
func (r *RaffleRepository) FindAll(ctx context.Context, includeDraft bool, state models.RaffleState) ([]*models.Raffle, error) {
	filter := bson.M{}
	if state != "" {
		filter["state"] = bson.M{"$in": stateAliases(state)}
	} else if !includeDraft {
		filter["state"] = bson.M{"$ne": string(models.StateDraft)}
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	return r.findMany(ctx, filter, opts)
}

// FindActive finds every raffle not in a terminal state. Drafts are not part
// of the reconciler's working set.
func (r *RaffleRepository) FindActive(ctx context.Context) ([]*models.Raffle, error) {
	excluded := append(stateAliases(models.StateCompleted), string(models.StateDraft))
	filter := bson.M{"state": bson.M{"$nin": excluded}}
	return r.findMany(ctx, filter, options.Find())
}

// FindByState finds raffles by lifecycle state
func (r *RaffleRepository) FindByState(ctx context.Context, state models.RaffleState) ([]*models.Raffle, error) {
	filter := bson.M{"state": bson.M{"$in": stateAliases(state)}}
	return r.findMany(ctx, filter, options.Find())
}

// FindWaiting finds raffles in WAITING that carry a waiting deadline
func (r *RaffleRepository) FindWaiting(ctx context.Context) ([]*models.Raffle, error) {
	filter := bson.M{
		"state":        string(models.StateWaiting),
		"waitingUntil": bson.M{"$exists": true, "$ne": nil},
	}
	return r.findMany(ctx, filter, options.Find())
}

// Update replaces a raffle document
func (r *RaffleRepository) Update(ctx context.Context, raffle *models.Raffle) error {
	raffle.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": raffle.ID}, raffle)
	return err
}

// ApplyTransition persists a lifecycle transition with a conditional write.
// The filter includes the previous state (and its legacy aliases), so a
// raffle concurrently moved elsewhere is left untouched and false is
// returned.
func (r *RaffleRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.RaffleState, change models.StateChange) (bool, error) {
	set := bson.M{
		"state":     string(change.State),
		"updatedAt": time.Now(),
	}
	if change.CurrentStage > 0 {
		set["currentStage"] = change.CurrentStage
	}
	if change.WaitingEnteredAt != nil {
		set["waitingEnteredAt"] = *change.WaitingEnteredAt
	}
	if change.WaitingUntil != nil {
		set["waitingUntil"] = *change.WaitingUntil
	}
	if change.LiveEnteredAt != nil {
		set["liveEnteredAt"] = *change.LiveEnteredAt
	}
	if change.CompletedAt != nil {
		set["completedAt"] = *change.CompletedAt
	}
	if change.SetWinners {
		set["winners"] = change.Winners
	}

	update := bson.M{"$set": set}
	if change.ClearWaiting {
		update["$unset"] = bson.M{"waitingEnteredAt": "", "waitingUntil": "", "liveEnteredAt": ""}
	}

	filter := bson.M{"_id": id, "state": bson.M{"$in": stateAliases(from)}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// SetSalesPaused flips the sales-paused flag
func (r *RaffleRepository) SetSalesPaused(ctx context.Context, id primitive.ObjectID, paused bool) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"salesPaused": paused, "updatedAt": time.Now()}})
	return err
}

// SetMinTickets adjusts the minimum ticket count
func (r *RaffleRepository) SetMinTickets(ctx context.Context, id primitive.ObjectID, min int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"minTickets": min, "updatedAt": time.Now()}})
	return err
}

// SetState overrides the lifecycle state without transition conditions
func (r *RaffleRepository) SetState(ctx context.Context, id primitive.ObjectID, state models.RaffleState) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"state": string(state), "updatedAt": time.Now()}})
	return err
}

// UpdateProgress refreshes the denormalized sales progress fields
func (r *RaffleRepository) UpdateProgress(ctx context.Context, id primitive.ObjectID, sold int, pct float64) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"soldCount": sold, "progressPct": pct, "updatedAt": time.Now()}})
	return err
}

// Delete deletes a raffle by ID
func (r *RaffleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *RaffleRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Raffle, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raffles []*models.Raffle
	if err := cursor.All(ctx, &raffles); err != nil {
		return nil, err
	}
	if raffles == nil {
		raffles = []*models.Raffle{}
	}
	for _, raffle := range raffles {
		raffle.Normalize()
	}
	return raffles, nil
}

// stateAliases returns the stored spellings that normalize to the given
// state, so filters keep matching documents written before the migration.
func stateAliases(state models.RaffleState) []string {
	switch state.Normalized() {
	case models.StateCompleted:
		return []string{"completed", "completado"}
	case models.StatePublished:
		return []string{"published", "activo", "pausado"}
	default:
		return []string{string(state.Normalized())}
	}
}
