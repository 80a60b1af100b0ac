package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceNumber string    // free text from OCR, may be empty
	InvoiceDate   time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	SupplierID    uuid.UUID `gorm:"type:uuid;index;not null"`

	TotalAmount   float64 `gorm:"type:decimal(10,2);default:0.0"`
	Currency      string  `gorm:"type:varchar(3);default:'EUR'"`
	Status        string  `gorm:"type:varchar(20);default:'pending'"` // pending, validated, processed
	OCRConfidence float64 `gorm:"default:0.0"`
	FilePath      string

	CreatedAt time.Time

	Supplier Supplier      `gorm:"foreignKey:SupplierID"`
	Lines    []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// InvoiceLine keeps RawDescription untouched as the historical record of
// what OCR produced; quantity and prices are operator-corrected values.
type InvoiceLine struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProductID *uuid.UUID `gorm:"type:uuid;index"` // nil when the line stayed unmatched

	RawDescription string  `gorm:"type:text;not null"`
	Quantity       float64 `gorm:"default:1.0"`
	UnitPrice      float64 `gorm:"type:decimal(10,2);default:0.0"`
	TotalPrice     float64 `gorm:"type:decimal(10,2);default:0.0"`

	OCRConfidence          float64 `gorm:"default:0.0"`
	ProductMatchConfidence float64 `gorm:"default:0.0"`

	ValidationStatus string `gorm:"type:varchar(20);default:'pending'"` // pending, validated, rejected
	ValidatedBy      string
	ValidatedAt      *time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (l *InvoiceLine) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}
