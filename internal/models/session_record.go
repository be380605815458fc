package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionRecord is the database row behind a Session. The full session is
// stored as a JSON document in Context; the extracted columns exist for
// indexing and the idle-cart sweep.
type SessionRecord struct {
	gorm.Model
	UserID   string    `json:"user_id" gorm:"uniqueIndex"`
	Platform string    `json:"platform"`
	Stage    string    `json:"stage"`
	Context  string    `json:"context"` // JSON-encoded Session
	LastSeen time.Time `json:"last_seen" gorm:"index"`
}
