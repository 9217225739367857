package main

import (
	"context"
	"log"

	"quizhall/bot"
	"quizhall/config"
	"quizhall/handlers"
	"quizhall/middleware"
	"quizhall/models"
	"quizhall/routes"
	"quizhall/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.Game{},
		&models.Round{},
		&models.Question{},
		&models.Team{},
		&models.Captain{},
		&models.Answer{},
		&models.DraftAnswer{},
		&models.Admin{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	ctx := context.Background()

	// Initialize services
	active := &services.ActiveGameHandle{}
	cache := services.NewLiveStateCache(redisClient)
	hub := services.NewHub(cache)
	gameService := services.NewGameService(db, active)
	answerService := services.NewAnswerService(db)
	dispatchService := services.NewDispatchService(db, active, hub)
	scoreService := services.NewScoreService(db)
	fixtureService := services.NewFixtureService(db, active)
	exportService := services.NewExportService(db)

	gameService.RestoreActiveGame(ctx)
	if cfg.SeedAdminID != 0 {
		if err := gameService.SeedAdmin(ctx, cfg.SeedAdminID); err != nil {
			log.Printf("failed to seed admin %d: %v", cfg.SeedAdminID, err)
		}
	}

	// Start the Telegram bot when a token is configured
	if cfg.BotToken != "" {
		quizBot, err := bot.New(cfg, gameService, answerService, dispatchService, scoreService)
		if err != nil {
			log.Fatal("Failed to start Telegram bot:", err)
		}
		dispatchService.SetCaptainNotifier(quizBot)
		go quizBot.Run(ctx)
	} else {
		log.Println("BOT_TOKEN is empty, running without the Telegram bot")
	}

	// Initialize handlers
	adminHandler := handlers.NewAdminHandler(fixtureService, scoreService, exportService, dispatchService)
	hallHandler := handlers.NewHallHandler(hub, cfg.DisplayToken)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, adminHandler, hallHandler, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.BindAddress + ":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
