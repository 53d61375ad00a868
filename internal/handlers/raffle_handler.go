package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rifaplay/raffle-backend/internal/models"
	"github.com/rifaplay/raffle-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// RaffleHandler handles raffle-related HTTP requests
type RaffleHandler struct {
	raffleService *services.RaffleService
	reconciler    *services.ReconcilerService
}

// NewRaffleHandler creates a new RaffleHandler
func NewRaffleHandler(raffleService *services.RaffleService, reconciler *services.ReconcilerService) *RaffleHandler {
	return &RaffleHandler{raffleService: raffleService, reconciler: reconciler}
}

// ListRaffles handles GET /raffles. The public listing hides drafts; the
// operator listing passes ?includeDraft=true through the protected route.
func (h *RaffleHandler) ListRaffles(c *gin.Context) {
	includeDraft := c.Query("includeDraft") == "true"
	state := models.RaffleState(c.Query("state"))
	if state != "" && !state.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state filter"})
		return
	}

	raffles, err := h.raffleService.List(c.Request.Context(), includeDraft, state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list raffles"})
		return
	}
	c.JSON(http.StatusOK, raffles)
}

// GetRaffle handles GET /raffles/:id
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	raffle, err := h.raffleService.Get(c.Request.Context(), id)
	if err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// GetRaffleBySlug handles GET /raffles/slug/:slug
func (h *RaffleHandler) GetRaffleBySlug(c *gin.Context) {
	raffle, err := h.raffleService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// GetParticipants handles GET /raffles/:id/participants
func (h *RaffleHandler) GetParticipants(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	participants, err := h.raffleService.Participants(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load participants"})
		return
	}
	c.JSON(http.StatusOK, participants)
}

// CreateRaffle handles POST /admin/raffles
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	var raffle models.Raffle
	if err := c.ShouldBindJSON(&raffle); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.raffleService.Create(c.Request.Context(), &raffle); err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, raffle)
}

// UpdateRaffle handles PUT /admin/raffles/:id
func (h *RaffleHandler) UpdateRaffle(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var raffle models.Raffle
	if err := c.ShouldBindJSON(&raffle); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.raffleService.Update(c.Request.Context(), id, &raffle)
	if err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// PublishRaffle handles POST /admin/raffles/:id/publish
func (h *RaffleHandler) PublishRaffle(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	raffle, err := h.raffleService.Publish(c.Request.Context(), id)
	if err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// DeleteRaffle handles DELETE /admin/raffles/:id
func (h *RaffleHandler) DeleteRaffle(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := h.raffleService.Delete(c.Request.Context(), id); err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Raffle deleted"})
}

// PauseSalesRequest is the body for POST /admin/raffles/:id/pause-sales
type PauseSalesRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// PauseSales handles POST /admin/raffles/:id/pause-sales
func (h *RaffleHandler) PauseSales(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req PauseSalesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.raffleService.SetSalesPaused(c.Request.Context(), id, *req.Paused); err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"salesPaused": *req.Paused})
}

// AdjustMinimumRequest is the body for POST /admin/raffles/:id/adjust-minimum
type AdjustMinimumRequest struct {
	MinTickets int `json:"minTickets" binding:"required,min=1"`
}

// AdjustMinimum handles POST /admin/raffles/:id/adjust-minimum
func (h *RaffleHandler) AdjustMinimum(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req AdjustMinimumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.raffleService.AdjustMinTickets(c.Request.Context(), id, req.MinTickets); err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"minTickets": req.MinTickets})
}

// OverrideStateRequest is the body for POST /admin/raffles/:id/state
type OverrideStateRequest struct {
	State string `json:"state" binding:"required"`
}

// OverrideState handles POST /admin/raffles/:id/state
func (h *RaffleHandler) OverrideState(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req OverrideStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raffle, err := h.raffleService.OverrideState(c.Request.Context(), id, models.RaffleState(req.State))
	if err != nil {
		respondRaffleError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// Reconcile handles POST /admin/reconcile, a manual sweep of every active
// raffle.
func (h *RaffleHandler) Reconcile(c *gin.Context) {
	fired, err := h.reconciler.ReevaluateAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reconcile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitions": fired})
}

func respondRaffleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Raffle not found"})
	case errors.Is(err, services.ErrNotEditable),
		errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
