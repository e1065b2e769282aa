package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/auth"
	"github.com/flightopsio/crew-capacity-api-go/pkg/config"
	"github.com/flightopsio/crew-capacity-api-go/pkg/database"
	"github.com/flightopsio/crew-capacity-api-go/pkg/detector"
	"github.com/flightopsio/crew-capacity-api-go/pkg/intake"
	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
	"github.com/flightopsio/crew-capacity-api-go/pkg/roster"
	"github.com/flightopsio/crew-capacity-api-go/pkg/store"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB       *gorm.DB
	Store    *store.Store
	Intake   *intake.Service
	Calendar *roster.Calendar
	Config   config.Engine

	planLocks sync.Map // year -> *sync.Mutex
}

// NewHandler wires the engine components over one database handle.
func NewHandler(db *gorm.DB, cfg config.Engine) *Handler {
	st := store.New(db)
	det := detector.New(detector.Config{
		CrewMinimums: cfg.CrewMinimums,
		ClusterSize:  cfg.ClusterSize,
	})
	return &Handler{
		DB:       db,
		Store:    st,
		Intake:   intake.New(st, det),
		Calendar: roster.New(cfg.Blackout),
		Config:   cfg,
	}
}

// AuthMiddleware verifies the JWT token for admin and planning routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the API key for engine routes using HMAC
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		callerID, err := auth.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:       key,
			Name:      callerID,
			RateLimit: 10000,
		})

		c.Set("apiKey", &apiKey)
		c.Set("callerID", callerID)
		c.Next()
	}
}

// requestPayload is the wire shape for check/submit. Dates are day-granular.
type requestPayload struct {
	PilotID   string `json:"pilot_id"`
	Rank      string `json:"rank"`
	Category  string `json:"category"`
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

const dateFmt = "2006-01-02"

func (p *requestPayload) toInput() (models.RequestInput, error) {
	in := models.RequestInput{
		PilotID:  p.PilotID,
		Rank:     models.Rank(p.Rank),
		Category: models.RequestCategory(p.Category),
		Type:     p.Type,
	}
	start, err := time.Parse(dateFmt, p.StartDate)
	if err != nil {
		return in, &models.ValidationError{Field: "start_date", Reason: "expected YYYY-MM-DD"}
	}
	in.StartDate = start
	if p.EndDate != "" {
		end, err := time.Parse(dateFmt, p.EndDate)
		if err != nil {
			return in, &models.ValidationError{Field: "end_date", Reason: "expected YYYY-MM-DD"}
		}
		in.EndDate = &end
	}
	return in, nil
}

// respondEngineError maps the failure classes onto status codes: validation
// rejections are 422, everything else is an infrastructure failure.
func respondEngineError(c *gin.Context, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// CheckRequest evaluates a request without persisting anything.
func (h *Handler) CheckRequest(c *gin.Context) {
	var payload requestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := payload.toInput()
	if err != nil {
		respondEngineError(c, err)
		return
	}

	res, err := h.Intake.Check(c.Request.Context(), in)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	h.RecordUsage(c, 1, 0)
	c.JSON(http.StatusOK, res)
}

// SubmitRequest runs the atomic check-then-create. A CRITICAL finding blocks
// the create entirely; the conflicts come back so the caller can show them.
func (h *Handler) SubmitRequest(c *gin.Context) {
	var payload requestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := payload.toInput()
	if err != nil {
		respondEngineError(c, err)
		return
	}

	created, res, err := h.Intake.Submit(c.Request.Context(), in)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	h.RecordUsage(c, 1, 0)

	if created == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "request blocked by conflicts",
			"result": res,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"request": created,
		"result":  res,
	})
}

// priorityPayload selects the contested window to rank.
type priorityPayload struct {
	Rank      string `json:"rank"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// RankPriority returns the pending requests of a rank over a window ordered
// by seniority, most senior first. Recommendation only; nothing is approved.
func (h *Handler) RankPriority(c *gin.Context) {
	var payload priorityPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rank := models.Rank(payload.Rank)
	if !models.ValidRank(rank) {
		respondEngineError(c, &models.ValidationError{Field: "rank", Reason: "unknown rank"})
		return
	}
	start, err := time.Parse(dateFmt, payload.StartDate)
	if err != nil {
		respondEngineError(c, &models.ValidationError{Field: "start_date", Reason: "expected YYYY-MM-DD"})
		return
	}
	end := start
	if payload.EndDate != "" {
		if end, err = time.Parse(dateFmt, payload.EndDate); err != nil || end.Before(start) {
			respondEngineError(c, &models.ValidationError{Field: "end_date", Reason: "expected YYYY-MM-DD on or after start_date"})
			return
		}
	}

	competing, err := h.Store.PendingCompeting(c.Request.Context(), rank, start, end)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	ids := make([]string, 0, len(competing))
	for _, r := range competing {
		ids = append(ids, r.PilotID)
	}
	pilots, err := h.Store.PilotsByID(c.Request.Context(), ids)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ranked": detector.RankBySeniority(competing, pilots),
	})
}

// Login handles ops admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	key := auth.GenerateHMACKey(req.Name)

	preview := ""
	if len(key) > 8 {
		preview = key[:3] + "..." + key[len(key)-4:]
	} else {
		preview = "****"
	}

	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: preview,
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	h.DB.Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Delete(&database.APIKey{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}
