package main

import (
	"log"
	"net/http"
	"os"

	"github.com/flightopsio/crew-capacity-api-go/pkg/auth"
	"github.com/flightopsio/crew-capacity-api-go/pkg/config"
	"github.com/flightopsio/crew-capacity-api-go/pkg/database"
	"github.com/flightopsio/crew-capacity-api-go/pkg/handlers"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)
	h := handlers.NewHandler(db, config.LoadEngine())

	r := gin.Default()

	// Routes
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Crew Capacity & Conflict Resolution Engine",
			"version": "1.0.0",
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Engine Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/requests/check", h.CheckRequest)
		api.POST("/requests", h.SubmitRequest)
		api.POST("/requests/priority", h.RankPriority)
		api.POST("/validate", h.ValidateInput)
		api.GET("/plans/:year", h.GetPlan)
		api.GET("/usage", h.GetMyUsage)
	}

	// Plan regeneration is a manual, ops-gated trigger
	r.POST("/api/plans/:year", h.APIKeyMiddleware(), h.AuthMiddleware(), h.GeneratePlan)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
