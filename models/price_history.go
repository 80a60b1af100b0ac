// models/price_history.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PriceHistory is the append-only observation ledger all analytics read
// from. One row is written per validated invoice line carrying a product
// and a positive unit price; rows are never updated or deleted.
type PriceHistory struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID     uuid.UUID `gorm:"type:uuid;index;not null"`
	SupplierID    uuid.UUID `gorm:"type:uuid;index;not null"`
	InvoiceLineID uuid.UUID `gorm:"type:uuid;index;not null"`

	Price     float64 `gorm:"type:decimal(10,2);not null"` // line total
	Quantity  float64 `gorm:"default:1.0"`
	UnitPrice float64 `gorm:"type:decimal(10,2);not null"`

	Date      time.Time `gorm:"index;not null"` // invoice date of the observation
	CreatedAt time.Time

	Product  Product  `gorm:"foreignKey:ProductID"`
	Supplier Supplier `gorm:"foreignKey:SupplierID"`
}

func (p *PriceHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
