package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rifaplay/raffle-backend/internal/config"
	"github.com/rifaplay/raffle-backend/internal/handlers"
	"github.com/rifaplay/raffle-backend/internal/middleware"
	"github.com/rifaplay/raffle-backend/internal/realtime"
)

// HandlerDependencies holds all the handlers needed for the routes
type HandlerDependencies struct {
	AuthHandler   *handlers.AuthHandler
	RaffleHandler *handlers.RaffleHandler
	TicketHandler *handlers.TicketHandler
	WinnerHandler *handlers.WinnerHandler
}

// SetupRouter configures all the routes for the application
func SetupRouter(cfg *config.Config, deps HandlerDependencies, hub *realtime.Hub) *gin.Engine {
	router := gin.Default()

	// Apply global middleware
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Real-time event channel
	router.GET("/ws", func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request)
	})

	// API routes
	api := router.Group("/api/v1")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", deps.AuthHandler.Login)
			auth.POST("/register", deps.AuthHandler.Register)
		}

		raffles := api.Group("/raffles")
		{
			raffles.GET("", deps.RaffleHandler.ListRaffles)
			raffles.GET("/:id", deps.RaffleHandler.GetRaffle)
			raffles.GET("/slug/:slug", deps.RaffleHandler.GetRaffleBySlug)
			raffles.GET("/:id/participants", deps.RaffleHandler.GetParticipants)
			raffles.POST("/:id/tickets", deps.TicketHandler.Purchase)
		}

		winners := api.Group("/winners")
		{
			winners.GET("/raffle/:id", deps.WinnerHandler.GetByRaffle)
			winners.GET("/recent", deps.WinnerHandler.GetRecent)
		}

		// Protected operator routes
		admin := api.Group("/admin")
		admin.Use(middleware.JWTAuthMiddleware(cfg), middleware.AdminOnly())
		{
			admin.POST("/raffles", deps.RaffleHandler.CreateRaffle)
			admin.PUT("/raffles/:id", deps.RaffleHandler.UpdateRaffle)
			admin.DELETE("/raffles/:id", deps.RaffleHandler.DeleteRaffle)
			admin.POST("/raffles/:id/publish", deps.RaffleHandler.PublishRaffle)
			admin.POST("/raffles/:id/pause-sales", deps.RaffleHandler.PauseSales)
			admin.POST("/raffles/:id/adjust-minimum", deps.RaffleHandler.AdjustMinimum)
			admin.POST("/raffles/:id/state", deps.RaffleHandler.OverrideState)
			admin.GET("/raffles/:id/tickets/pending", deps.TicketHandler.Pending)
			admin.POST("/tickets/:id/approve", deps.TicketHandler.Approve)
			admin.POST("/tickets/:id/reject", deps.TicketHandler.Reject)
			admin.POST("/reconcile", deps.RaffleHandler.Reconcile)
		}
	}

	return router
}
