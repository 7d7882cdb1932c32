package main

import (
	"fmt"
	"os"

	"github.com/verdantiq/labelproof-backend/internal/data/db"
	"github.com/verdantiq/labelproof-backend/internal/data/repos"
	"github.com/verdantiq/labelproof-backend/internal/http/handlers"
	"github.com/verdantiq/labelproof-backend/internal/http/middleware"
	"github.com/verdantiq/labelproof-backend/internal/platform/envutil"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
	"github.com/verdantiq/labelproof-backend/internal/server"
	"github.com/verdantiq/labelproof-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	allowedOrigins := envutil.GetEnv("CORS_ALLOWED_ORIGINS", "", log)
	port := envutil.GetEnv("PORT", "8080", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	ruleSetRepo := repos.NewRuleSetRepo(thePG, log)
	ruleRepo := repos.NewRuleRepo(thePG, log)
	checkRepo := repos.NewCheckRepo(thePG, log)
	panelRepo := repos.NewPanelRepo(thePG, log)
	resultRepo := repos.NewResultRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Fatal("Could not init BucketService", "error", err)
	}
	geminiClient, err := services.NewGeminiClient(log)
	if err != nil {
		log.Fatal("Could not init GeminiClient", "error", err)
	}
	authService := services.NewAuthService(log, jwtSecretKey)
	ruleService := services.NewRuleService(thePG, log, ruleSetRepo, ruleRepo)
	ruleImporter := services.NewRuleImporter(log, ruleSetRepo, ruleRepo)
	ruleResolver := services.NewRuleResolver(log, ruleRepo, geminiClient)
	extractionService := services.NewExtractionService(log, geminiClient)
	evaluatorService := services.NewEvaluatorService(log, geminiClient)
	checkService := services.NewCheckService(thePG, log, checkRepo, panelRepo, ruleSetRepo, bucketService)
	orchestrator := services.NewCheckOrchestrator(
		thePG, log,
		checkRepo, panelRepo, resultRepo, ruleSetRepo,
		ruleResolver, extractionService, evaluatorService, bucketService,
	)

	// Handlers
	log.Info("Setting up Handlers from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)
	ruleSetHandler := handlers.NewRuleSetHandler(log, ruleService, ruleImporter)
	checkHandler := handlers.NewCheckHandler(log, checkService, orchestrator)
	panelHandler := handlers.NewPanelHandler(log, checkService)

	router := server.NewRouter(server.RouterConfig{
		Log:            log,
		AuthMiddleware: authMiddleware,
		RuleSetHandler: ruleSetHandler,
		CheckHandler:   checkHandler,
		PanelHandler:   panelHandler,
		AllowedOrigins: allowedOrigins,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
