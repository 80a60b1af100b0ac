package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Supplier names are looked up before invoice save to avoid duplicates,
// hence the unique index.
type Supplier struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Name        string    `gorm:"uniqueIndex;not null"`
	Address     string
	ContactInfo string
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
