package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/verdantiq/labelproof-backend/internal/http/handlers"
	"github.com/verdantiq/labelproof-backend/internal/http/middleware"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *middleware.AuthMiddleware
	RuleSetHandler *handlers.RuleSetHandler
	CheckHandler   *handlers.CheckHandler
	PanelHandler   *handlers.PanelHandler
	AllowedOrigins string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(cfg.Log))

	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Rule sets + rules
	api.POST("/rule-sets", cfg.RuleSetHandler.CreateRuleSet)
	api.GET("/rule-sets", cfg.RuleSetHandler.ListRuleSets)
	api.GET("/rule-sets/:id", cfg.RuleSetHandler.GetRuleSet)
	api.DELETE("/rule-sets/:id", cfg.RuleSetHandler.DeleteRuleSet)
	api.POST("/rule-sets/:id/rules", cfg.RuleSetHandler.CreateRule)
	api.POST("/rule-sets/:id/generate", cfg.RuleSetHandler.GenerateRules)
	api.PATCH("/rules/:id", cfg.RuleSetHandler.UpdateRule)
	api.DELETE("/rules/:id", cfg.RuleSetHandler.DeleteRule)

	// Checks + panels + analysis
	api.POST("/checks", cfg.CheckHandler.CreateCheck)
	api.GET("/checks", cfg.CheckHandler.ListChecks)
	api.GET("/checks/:id", cfg.CheckHandler.GetCheck)
	api.DELETE("/checks/:id", cfg.CheckHandler.DeleteCheck)
	api.POST("/checks/:id/panels", cfg.PanelHandler.UploadPanel)
	api.POST("/checks/:id/panels/sign", cfg.PanelHandler.SignPanelUpload)
	api.POST("/checks/:id/analyze", cfg.CheckHandler.RunAnalysis)

	return router
}
