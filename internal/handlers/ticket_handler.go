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

// TicketHandler handles ticket-related HTTP requests
type TicketHandler struct {
	ticketService *services.TicketService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// PurchaseRequest is the body for POST /raffles/:id/tickets
type PurchaseRequest struct {
	UserID  string `json:"userId" binding:"required"`
	Numbers []int  `json:"numbers" binding:"required,min=1"`
	Method  string `json:"method" binding:"required,oneof=cash transfer gateway"`
}

// Purchase handles POST /raffles/:id/tickets
func (h *TicketHandler) Purchase(c *gin.Context) {
	raffleID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	tickets, err := h.ticketService.Purchase(c.Request.Context(), raffleID, userID, req.Numbers, models.PaymentMethod(req.Method))
	if err != nil {
		respondTicketError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tickets)
}

// ApproveRequest is the body for POST /admin/tickets/:id/approve
type ApproveRequest struct {
	ReceiptNumber string `json:"receiptNumber"`
}

// Approve handles POST /admin/tickets/:id/approve
func (h *TicketHandler) Approve(c *gin.Context) {
	ticketID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.ticketService.Approve(c.Request.Context(), ticketID, req.ReceiptNumber)
	if err != nil {
		respondTicketError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// Reject handles POST /admin/tickets/:id/reject
func (h *TicketHandler) Reject(c *gin.Context) {
	ticketID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := h.ticketService.Reject(c.Request.Context(), ticketID); err != nil {
		respondTicketError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket rejected"})
}

// Pending handles GET /admin/raffles/:id/tickets/pending
func (h *TicketHandler) Pending(c *gin.Context) {
	raffleID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	tickets, err := h.ticketService.Pending(c.Request.Context(), raffleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending tickets"})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func respondTicketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrSalesClosed),
		errors.Is(err, services.ErrNumberTaken),
		errors.Is(err, services.ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
