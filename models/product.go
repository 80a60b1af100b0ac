package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a normalized catalog entry that OCR line descriptions get
// matched against. Products are never deleted here; retiring a product is
// an operator concern outside this service.
type Product struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Name     string    `gorm:"not null"`
	Category string
	Unit     string
}

func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
