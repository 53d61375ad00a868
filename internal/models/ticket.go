package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentMethod is how a ticket was paid for. Payment capture itself lives
// outside this service; only the confirmation flag matters here.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentGateway  PaymentMethod = "gateway"
)

// TicketStatus represents the status of a ticket within its raffle
type TicketStatus string

const (
	TicketActive   TicketStatus = "active"
	TicketWinner   TicketStatus = "winner"
	TicketExcluded TicketStatus = "excluded"
)

// Ticket represents a numbered entry in a raffle. Only tickets with
// PaymentConfirmed set are eligible for winner selection.
type Ticket struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	RaffleID         primitive.ObjectID  `bson:"raffleId" json:"raffleId"`
	UserID           primitive.ObjectID  `bson:"userId" json:"userId"`
	SellerID         *primitive.ObjectID `bson:"sellerId,omitempty" json:"sellerId,omitempty"`
	Number           int                 `bson:"number" json:"number"`
	PricePaid        float64             `bson:"pricePaid" json:"pricePaid"`
	Method           PaymentMethod       `bson:"method" json:"method"`
	Status           TicketStatus        `bson:"status" json:"status"`
	PaymentConfirmed bool                `bson:"paymentConfirmed" json:"paymentConfirmed"`
	ReceiptNumber    string              `bson:"receiptNumber,omitempty" json:"receiptNumber,omitempty"`
	PurchasedAt      time.Time           `bson:"purchasedAt" json:"purchasedAt"`
}
