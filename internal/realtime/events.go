package realtime

import "time"

// Event names published to raffle topics. Clients subscribe to a raffle room
// and receive these as JSON envelopes.
const (
	EventStateChanged       = "state-changed"
	EventDrawingStart       = "drawing-start"
	EventPrizeDrawBegin     = "prize-draw-begin"
	EventTimeTick           = "time-tick"
	EventWinnerAnnounced    = "winner-announced"
	EventDrawingComplete    = "drawing-complete"
	EventCountdownTick      = "countdown-tick"
	EventSalesPausedChanged = "sales-paused-changed"

	// EventRafflesUpdated is a list-level broadcast with no payload; listing
	// clients refetch when they see it.
	EventRafflesUpdated = "raffles-updated"
)

// Envelope is the wire shape of every server-sent event.
type Envelope struct {
	Event     string    `json:"event"`
	RaffleID  string    `json:"raffleId,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// clientMessage is what subscribers send to join or leave a raffle room.
type clientMessage struct {
	Action   string `json:"action"` // "join" | "leave"
	RaffleID string `json:"raffleId"`
}
