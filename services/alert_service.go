// services/alert_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"time"

	"pricetrack-backend/models"
	"pricetrack-backend/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// AlertService runs the daily price-alert scan and pushes significant
// variations to the configured operator number via Twilio.
type AlertService struct {
	db     *gorm.DB
	client *twilio.RestClient
}

func NewAlertService(db *gorm.DB) *AlertService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &AlertService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

func (s *AlertService) StartScheduler() {
	c := cron.New()

	// Run every day at 9 AM
	c.AddFunc("0 9 * * *", s.SendDailyAlerts)

	c.Start()
	log.Println("Price alert scheduler started")
}

// ScanPriceAlerts runs the pairwise alert detection over every product
// with at least two observations inside the window. Alerts come back
// sorted by absolute variation, largest first.
func ScanPriceAlerts(db *gorm.DB, threshold float64, daysBack int) []PriceAlert {
	cutoff := utils.BeginningOfDay(time.Now()).AddDate(0, 0, -daysBack)

	var productIDs []uuid.UUID
	if err := db.Model(&models.PriceHistory{}).
		Where("date >= ?", cutoff).
		Distinct("product_id").
		Pluck("product_id", &productIDs).Error; err != nil {
		log.Printf("Failed to list products with recent prices: %v", err)
		return nil
	}

	var alerts []PriceAlert
	for _, productID := range productIDs {
		var recent []models.PriceHistory
		if err := db.Preload("Supplier").
			Where("product_id = ? AND date >= ?", productID, cutoff).
			Order("date desc").
			Limit(2).
			Find(&recent).Error; err != nil {
			log.Printf("Failed to load recent prices for product %s: %v", productID, err)
			continue
		}
		if len(recent) < 2 {
			continue
		}
		var product models.Product
		if err := db.First(&product, "id = ?", productID).Error; err != nil {
			continue
		}
		if alert, ok := DetectPriceAlert(product, recent, threshold); ok {
			alerts = append(alerts, alert)
		}
	}

	SortAlerts(alerts)
	return alerts
}

func (s *AlertService) SendDailyAlerts() {
	log.Println("Starting daily price alert processing...")

	alerts := ScanPriceAlerts(s.db, AlertDefaultThresholdPercent, AlertDefaultWindowDays)
	for _, alert := range alerts {
		if s.alreadyNotifiedToday(alert) {
			continue
		}
		s.dispatch(alert)
	}

	log.Println("Daily price alert processing completed")
}

// alreadyNotifiedToday keeps the scheduler from re-sending the same
// product/supplier alert within one day.
func (s *AlertService) alreadyNotifiedToday(alert PriceAlert) bool {
	var count int64
	s.db.Model(&models.AlertLog{}).
		Where("product_id = ? AND supplier_id = ? AND sent_at >= ?",
			alert.Product.ID, alert.Supplier.ID, utils.BeginningOfDay(time.Now())).
		Count(&count)
	return count > 0
}

func (s *AlertService) dispatch(alert PriceAlert) {
	message := fmt.Sprintf("Alerte prix: %s chez %s est passé de %.2f à %.2f (%+.2f%%)",
		alert.Product.Name, alert.Supplier.Name,
		alert.PreviousPrice, alert.CurrentPrice, alert.VariationPercent)

	to := os.Getenv("ALERT_PHONE_NUMBER")
	if !utils.ValidatePhone(to) {
		log.Printf("ALERT_PHONE_NUMBER missing or invalid, skipping dispatch: %s", message)
		return
	}

	// WhatsApp when the number is in E.164 format, SMS otherwise
	channel := "sms"
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(message)
	if to[0] == '+' {
		channel = "whatsapp"
		params.SetTo("whatsapp:" + to)
		params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
	} else {
		params.SetTo(to)
		params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
	}

	resp, err := s.client.Api.CreateMessage(params)
	status := "sent"
	errorMsg := ""
	if err != nil {
		log.Printf("Failed to send price alert for %s: %v", alert.Product.Name, err)
		status = "failed"
		errorMsg = err.Error()
	} else if resp.Sid != nil {
		log.Printf("Price alert sent for %s, SID: %s", alert.Product.Name, *resp.Sid)
	} else {
		log.Printf("Price alert sent for %s, but no SID returned", alert.Product.Name)
	}

	alertLog := models.AlertLog{
		ProductID:        alert.Product.ID,
		SupplierID:       alert.Supplier.ID,
		VariationPercent: alert.VariationPercent,
		Severity:         alert.Severity,
		Message:          message,
		Status:           status,
		ErrorMessage:     errorMsg,
		Channel:          channel,
		SentAt:           time.Now(),
	}
	if err := s.db.Create(&alertLog).Error; err != nil {
		log.Printf("Failed to log price alert for product %s: %v", alert.Product.ID, err)
	}
}
