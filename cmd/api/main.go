package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rifaplay/raffle-backend/api/routes"
	"github.com/rifaplay/raffle-backend/internal/config"
	"github.com/rifaplay/raffle-backend/internal/handlers"
	"github.com/rifaplay/raffle-backend/internal/realtime"
	"github.com/rifaplay/raffle-backend/internal/repositories"
	mongorepo "github.com/rifaplay/raffle-backend/internal/repositories/mongodb"
	"github.com/rifaplay/raffle-backend/internal/services"
	"github.com/rifaplay/raffle-backend/pkg/mongodb"
	"golang.org/x/exp/slog"
)

func main() {
	// Load .env if present; real deployments set environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogger(cfg.LogLevel)

	// Connect to MongoDB
	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			slog.Error("mongodb disconnect failed", "error", err)
		}
	}()
	db := mongoClient.Database(cfg.MongoDB.Database)

	// Repositories
	var raffleRepo repositories.RaffleRepository = mongorepo.NewRaffleRepository(db)
	var ticketRepo repositories.TicketRepository = mongorepo.NewTicketRepository(db)
	var winnerRepo repositories.WinnerRepository = mongorepo.NewWinnerRepository(db)
	var userRepo repositories.UserRepository = mongorepo.NewUserRepository(db)

	// Real-time event channel
	hub := realtime.NewHub()

	// Services. The live broadcaster comes first; the transition service
	// hands raffles to it when they go live.
	liveService := services.NewLiveDrawService(raffleRepo, ticketRepo, userRepo, winnerRepo, hub, cfg.Draw)
	transitionService := services.NewTransitionService(raffleRepo, ticketRepo, userRepo, hub, liveService, cfg.Draw.WaitingWindow())
	reconcilerService := services.NewReconcilerService(raffleRepo, transitionService, hub, liveService, cfg.Draw.ReconcileInterval())
	countdownService := services.NewCountdownService(raffleRepo, hub, cfg.Draw.CountdownInterval())
	raffleService := services.NewRaffleService(raffleRepo, ticketRepo, userRepo, hub)
	ticketService := services.NewTicketService(ticketRepo, raffleRepo, transitionService, hub)
	authService := services.NewAuthService(userRepo, cfg)

	// Background loops
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Restart recovery: raffles stuck in LIVE replay their broadcast.
	if err := reconcilerService.RecoverLiveBroadcasts(bgCtx); err != nil {
		slog.Error("live broadcast recovery failed", "error", err)
	}

	go reconcilerService.Run(bgCtx)
	go countdownService.Run(bgCtx)

	// Handlers
	handlerDeps := routes.HandlerDependencies{
		AuthHandler:   handlers.NewAuthHandler(authService),
		RaffleHandler: handlers.NewRaffleHandler(raffleService, reconcilerService),
		TicketHandler: handlers.NewTicketHandler(ticketService),
		WinnerHandler: handlers.NewWinnerHandler(winnerRepo),
	}

	router := routes.SetupRouter(cfg, handlerDeps, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	slog.Info("server starting", "port", cfg.Server.Port)

	// Run server in a goroutine so that it doesn't block
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	bgCancel()
	liveService.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	slog.Info("server exiting")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
