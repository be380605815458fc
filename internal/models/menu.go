package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is one orderable item in the business catalog. IDs are stable;
// prices here are the only authoritative prices in the system.
type MenuItem struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	Name          string          `json:"name" gorm:"index"`
	Category      string          `json:"category" gorm:"index"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(10,2)"`
	Available     bool            `json:"available"`
	AgeRestricted bool            `json:"age_restricted"` // e.g. alcohol
	Tags          string          `json:"tags"`           // comma-separated, e.g. "spicy,veg"
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
