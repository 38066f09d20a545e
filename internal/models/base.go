package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base holds the columns shared by every resource table
type Base struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// BeforeCreate assigns an id when none is set
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID(tx.Statement.Table)
	}
	return nil
}

// NewID creates a unique id: the first three letters of prefix, the unix time and a random hex suffix.
// Example: tas1701388800_a0dc5b1e4d0f4d3a9b1c2d3e4f5a6b7c
func NewID(prefix string) string {
	prefix = strings.ToLower(prefix)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s%d_%s", prefix, time.Now().UTC().Unix(), strings.ReplaceAll(uuid.NewString(), "-", ""))
}
