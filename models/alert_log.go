// models/alert_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertLog records every price alert the scheduler pushed out, so the
// daily scan can skip products it already notified about.
type AlertLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID  uuid.UUID `gorm:"type:uuid;index;not null"`
	SupplierID uuid.UUID `gorm:"type:uuid;index;not null"`

	VariationPercent float64
	Severity         string `gorm:"type:varchar(10)"` // high, medium
	Message          string `gorm:"type:text"`
	Status           string `gorm:"type:varchar(20)"` // sent, failed
	ErrorMessage     string `gorm:"type:text"`
	Channel          string `gorm:"type:varchar(20)"` // whatsapp, sms
	SentAt           time.Time

	gorm.Model
}

func (a *AlertLog) BeforeCreate(tx *gorm.DB) (err error) {
	a.ID = uuid.New()
	return
}
