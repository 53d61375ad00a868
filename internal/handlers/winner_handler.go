package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WinnerHandler handles winner-related HTTP requests
type WinnerHandler struct {
	winnerRepo repositories.WinnerRepository
}

// NewWinnerHandler creates a new WinnerHandler
func NewWinnerHandler(winnerRepo repositories.WinnerRepository) *WinnerHandler {
	return &WinnerHandler{winnerRepo: winnerRepo}
}

// GetByRaffle handles GET /winners/raffle/:id
func (h *WinnerHandler) GetByRaffle(c *gin.Context) {
	raffleID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	winners, err := h.winnerRepo.FindByRaffleID(c.Request.Context(), raffleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list winners"})
		return
	}
	c.JSON(http.StatusOK, winners)
}

// GetRecent handles GET /winners/recent?limit=N
func (h *WinnerHandler) GetRecent(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	winners, err := h.winnerRepo.FindRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list winners"})
		return
	}
	c.JSON(http.StatusOK, winners)
}
