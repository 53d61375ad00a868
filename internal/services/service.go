package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventPublisher is the outbound side of the real-time channel. The services
// only produce events; delivery guarantees stop at the process boundary.
type EventPublisher interface {
	Publish(raffleID string, event string, payload any) error
	Broadcast(event string, payload any) error
}

// BroadcastStarter launches the live drawing broadcast for a raffle. The
// transition service depends on this narrow view so tests can record starts
// without running a real broadcast.
type BroadcastStarter interface {
	Start(raffleID primitive.ObjectID)
	IsRunning(raffleID primitive.ObjectID) bool
}
