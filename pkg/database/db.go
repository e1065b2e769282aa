package database

import (
	"log"
	"os"
	"time"

	"github.com/flightopsio/crew-capacity-api-go/pkg/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Pilot mirrors the external roster store's pilot record. The engine reads
// it and never writes it; rows are synced in by the records application.
type Pilot struct {
	ID              string `gorm:"primaryKey" json:"id"`
	Rank            string `gorm:"not null;index" json:"rank"`
	SeniorityNumber int    `gorm:"uniqueIndex;not null" json:"seniority_number"`
	Active          bool   `gorm:"not null;default:true" json:"active"`
}

// PilotRequest is a leave/flight/bid row. Status transitions belong to the
// external approval workflow; the engine creates rows and reads occupancy.
type PilotRequest struct {
	ID                 string                     `gorm:"primaryKey" json:"id"`
	PilotID            string                     `gorm:"not null;index:idx_requests_pilot_dates" json:"pilot_id"`
	Rank               string                     `gorm:"not null;index:idx_requests_rank_dates" json:"rank"`
	Category           string                     `gorm:"not null" json:"category"`
	Type               string                     `gorm:"not null" json:"type"`
	StartDate          time.Time                  `gorm:"type:date;not null;index:idx_requests_pilot_dates;index:idx_requests_rank_dates" json:"start_date"`
	EndDate            *time.Time                 `gorm:"type:date;index:idx_requests_pilot_dates;index:idx_requests_rank_dates" json:"end_date"`
	Status             string                     `gorm:"not null;default:'PENDING';index" json:"status"`
	ConflictFlags      []string                   `gorm:"serializer:json" json:"conflict_flags"`
	AvailabilityImpact *models.AvailabilityImpact `gorm:"serializer:json" json:"availability_impact"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// CertificationRenewal is an expiring check awaiting a planned period.
type CertificationRenewal struct {
	ID                 string     `gorm:"primaryKey" json:"id"`
	PilotID            string     `gorm:"not null;index" json:"pilot_id"`
	CheckType          string     `gorm:"not null" json:"check_type"`
	OriginalExpiryDate time.Time  `gorm:"type:date;not null;index" json:"original_expiry_date"`
	PlannedRenewalDate *time.Time `gorm:"type:date" json:"planned_renewal_date"`
	AssignedPeriodCode *string    `gorm:"index" json:"assigned_period_code"`
	Status             string     `gorm:"not null;default:'UNASSIGNED';index" json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"key"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// EngineUsage tracks per-key daily engine activity
type EngineUsage struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	KeyID      uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date       string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	CheckCount int    `gorm:"default:0" json:"check_count"`
	PlanCount  int    `gorm:"default:0" json:"plan_count"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// InitDB initializes the database connection and migrates the schema
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "crew_engine.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto Migration
	db.AutoMigrate(&Pilot{}, &PilotRequest{}, &CertificationRenewal{}, &APIKey{}, &EngineUsage{}, &MasterUser{})

	return db
}
