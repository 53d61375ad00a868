package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleKind distinguishes a raffle with a single prize list from one that
// runs through ordered stages, each with its own threshold and prizes.
type RaffleKind string

const (
	KindSinglePrize RaffleKind = "single-prize"
	KindStaged      RaffleKind = "staged"
)

// RaffleState represents the lifecycle state of a raffle
type RaffleState string

const (
	StateDraft     RaffleState = "draft"
	StatePublished RaffleState = "published"
	StateWaiting   RaffleState = "waiting"
	StateLive      RaffleState = "live"
	StateCompleted RaffleState = "completed"

	// Legacy aliases still present in old documents. Normalized on read.
	stateLegacyCompleted RaffleState = "completado"
	stateLegacyActive    RaffleState = "activo"
	stateLegacyPaused    RaffleState = "pausado"
)

// Normalized maps legacy state aliases onto the canonical state set.
func (s RaffleState) Normalized() RaffleState {
	switch s {
	case stateLegacyCompleted:
		return StateCompleted
	case stateLegacyActive, stateLegacyPaused:
		return StatePublished
	default:
		return s
	}
}

// Valid reports whether s is a canonical or legacy state value.
func (s RaffleState) Valid() bool {
	switch s {
	case StateDraft, StatePublished, StateWaiting, StateLive, StateCompleted,
		stateLegacyCompleted, stateLegacyActive, stateLegacyPaused:
		return true
	}
	return false
}

// Prize defines a single prize. Stage-level and raffle-level prize lists use
// the same shape; media fields are optional.
type Prize struct {
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL    string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	VideoURL    string `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
}

// Stage is one ordered phase of a staged raffle. Percentage is the share of
// total tickets that must be payment-confirmed before the stage qualifies.
type Stage struct {
	Number     int     `bson:"number" json:"number"`
	Name       string  `bson:"name,omitempty" json:"name,omitempty"`
	Percentage float64 `bson:"percentage" json:"percentage"`
	PrizeLabel string  `bson:"prizeLabel" json:"prizeLabel"`
	Prizes     []Prize `bson:"prizes,omitempty" json:"prizes,omitempty"`
	Completed  bool    `bson:"completed" json:"completed"`
}

// WinnerEntry is a winner draft embedded in the raffle document. Purchaser
// fields are denormalized at draw time and never re-read.
type WinnerEntry struct {
	TicketID      primitive.ObjectID `bson:"ticketId" json:"ticketId"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	UserName      string             `bson:"userName" json:"userName"`
	UserEmail     string             `bson:"userEmail" json:"userEmail"`
	TicketNumber  int                `bson:"ticketNumber" json:"ticketNumber"`
	Prize         string             `bson:"prize" json:"prize"`
	PrizeImageURL string             `bson:"prizeImageUrl,omitempty" json:"prizeImageUrl,omitempty"`
	PrizeVideoURL string             `bson:"prizeVideoUrl,omitempty" json:"prizeVideoUrl,omitempty"`
	Stage         int                `bson:"stage,omitempty" json:"stage,omitempty"` // 0 for single-prize raffles
	DrawnAt       time.Time          `bson:"drawnAt" json:"drawnAt"`
}

// Raffle is the aggregate root for one drawing event.
type Raffle struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	Slug         string             `bson:"slug" json:"slug"`
	Kind         RaffleKind         `bson:"kind" json:"kind"`
	TicketPrice  float64            `bson:"ticketPrice" json:"ticketPrice"`
	MinTickets   int                `bson:"minTickets" json:"minTickets"`
	TotalTickets int                `bson:"totalTickets" json:"totalTickets"`
	CloseAt      time.Time          `bson:"closeAt" json:"closeAt"`
	State        RaffleState        `bson:"state" json:"state"`
	Stages       []Stage            `bson:"stages,omitempty" json:"stages,omitempty"`
	Prizes       []Prize            `bson:"prizes,omitempty" json:"prizes,omitempty"`
	Images       []string           `bson:"images,omitempty" json:"images,omitempty"`
	Rules        string             `bson:"rules,omitempty" json:"rules,omitempty"`

	SoldCount   int     `bson:"soldCount" json:"soldCount"`
	ProgressPct float64 `bson:"progressPct" json:"progressPct"`

	// CurrentStage is the 1-based stage index for staged raffles; 0 means
	// the staged run has not started. Only ever advances forward.
	CurrentStage     int           `bson:"currentStage" json:"currentStage"`
	WaitingEnteredAt *time.Time    `bson:"waitingEnteredAt,omitempty" json:"waitingEnteredAt,omitempty"`
	WaitingUntil     *time.Time    `bson:"waitingUntil,omitempty" json:"waitingUntil,omitempty"`
	LiveEnteredAt    *time.Time    `bson:"liveEnteredAt,omitempty" json:"liveEnteredAt,omitempty"`
	CompletedAt      *time.Time    `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	SalesPaused      bool          `bson:"salesPaused" json:"salesPaused"`
	Winners          []WinnerEntry `bson:"winners,omitempty" json:"winners,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Normalize canonicalizes the state and converts all stored instants to UTC.
// Called at the store-read boundary so the core only sees one shape.
func (r *Raffle) Normalize() {
	r.State = r.State.Normalized()
	r.CloseAt = r.CloseAt.UTC()
	for _, t := range []**time.Time{&r.WaitingEnteredAt, &r.WaitingUntil, &r.LiveEnteredAt, &r.CompletedAt} {
		if *t != nil {
			utc := (**t).UTC()
			*t = &utc
		}
	}
}

// StageByNumber returns the stage with the given 1-based number, or nil.
func (r *Raffle) StageByNumber(n int) *Stage {
	if n < 1 || n > len(r.Stages) {
		return nil
	}
	return &r.Stages[n-1]
}

// IsFinalStage reports whether n is the last stage of a staged raffle.
func (r *Raffle) IsFinalStage(n int) bool {
	return len(r.Stages) > 0 && n == len(r.Stages)
}

// HasStageWinners reports whether winners for the given stage were already
// selected. This is the idempotency guard against re-drawing a stage.
func (r *Raffle) HasStageWinners(stage int) bool {
	for _, w := range r.Winners {
		if w.Stage == stage {
			return true
		}
	}
	return false
}

// StateChange is the field set persisted alongside one lifecycle transition.
// The repository turns it into a single conditional update filtered on the
// previous state, so a racing evaluation loses cleanly.
type StateChange struct {
	State            RaffleState
	CurrentStage     int // advance the stage index when > 0
	WaitingEnteredAt *time.Time
	WaitingUntil     *time.Time
	LiveEnteredAt    *time.Time
	CompletedAt      *time.Time
	ClearWaiting     bool // unset waiting fields on stage loop-back
	SetWinners       bool
	Winners          []WinnerEntry
}
