package handlers

import (
	"net/http"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/database"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordUsage records engine activity for the calling key using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, checkDelta, planDelta int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"check_count": gorm.Expr("check_count + ?", checkDelta),
			"plan_count":  gorm.Expr("plan_count + ?", planDelta),
		}),
	}).Create(&database.EngineUsage{
		KeyID:      apiKey.ID,
		Date:       today,
		CheckCount: checkDelta,
		PlanCount:  planDelta,
	})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.EngineUsage
	h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// GetMyUsage returns usage stats for the calling key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "API key context missing"})
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	var usage []database.EngineUsage
	h.DB.Where("key_id = ?", apiKey.ID).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}
