package handler

import (
	"net/http"

	"github.com/flightopsio/crew-capacity-api-go/pkg/auth"
	"github.com/flightopsio/crew-capacity-api-go/pkg/config"
	"github.com/flightopsio/crew-capacity-api-go/pkg/database"
	"github.com/flightopsio/crew-capacity-api-go/pkg/handlers"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	// Initialize DB
	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)
	h := handlers.NewHandler(db, config.LoadEngine())

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	r = gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Routes
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Crew Capacity & Conflict Resolution Engine (Vercel)",
			"version": "1.0.0",
		})
	})

	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

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

	r.POST("/api/plans/:year", h.APIKeyMiddleware(), h.AuthMiddleware(), h.GeneratePlan)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
