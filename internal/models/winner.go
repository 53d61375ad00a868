package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Winner is the durable winner record, one per prize per stage per raffle
// run. Upserts are keyed by (raffleId, ticketId) so re-running the persist
// step after a crash never duplicates records.
type Winner struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RaffleID     primitive.ObjectID `bson:"raffleId" json:"raffleId"`
	RaffleTitle  string             `bson:"raffleTitle" json:"raffleTitle"`
	TicketID     primitive.ObjectID `bson:"ticketId" json:"ticketId"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	UserName     string             `bson:"userName" json:"userName"`
	UserEmail    string             `bson:"userEmail" json:"userEmail"`
	TicketNumber int                `bson:"ticketNumber" json:"ticketNumber"`
	Prize        string             `bson:"prize" json:"prize"`
	Stage        int                `bson:"stage,omitempty" json:"stage,omitempty"` // 0 for single-prize raffles
	DrawnAt      time.Time          `bson:"drawnAt" json:"drawnAt"`
	Notified     bool               `bson:"notified" json:"notified"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
