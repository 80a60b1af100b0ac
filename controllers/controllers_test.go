package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"pricetrack-backend/config"
	"pricetrack-backend/models"
	"pricetrack-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the package-level DB at an isolated in-memory
// sqlite database. Each test gets its own database via t.Name().
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Supplier{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.PriceHistory{},
		&models.AlertLog{},
	))

	config.DB = db
	return db
}

// stubExtractor returns canned OCR text so upload tests never touch
// tesseract.
type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(string) (string, error) {
	return s.text, s.err
}

func newTestRouter(extractor services.TextExtractor, uploadDir string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api")

	products := api.Group("/products")
	products.POST("", CreateProduct)
	products.GET("", GetProducts)
	products.GET("/match", MatchProducts)
	products.GET("/:id", GetProduct)

	suppliers := api.Group("/suppliers")
	suppliers.POST("", CreateSupplier)
	suppliers.GET("", GetSuppliers)
	suppliers.GET("/:id", GetSupplier)

	ic := &InvoiceController{Extractor: extractor, UploadDir: uploadDir}
	invoices := api.Group("/invoices")
	invoices.POST("/upload", ic.UploadInvoice)
	invoices.POST("", ic.SaveInvoice)
	invoices.GET("", ic.GetInvoices)
	invoices.GET("/:id", ic.GetInvoice)
	invoices.DELETE("/:id", ic.DeleteInvoice)

	ac := AnalyticsController{}
	analytics := api.Group("/analytics")
	analytics.GET("/price-evolution/:productId", ac.GetPriceEvolution)
	analytics.GET("/price-volatility", ac.GetPriceVolatility)
	analytics.GET("/supplier-comparison/:productId", ac.GetSupplierComparison)
	analytics.GET("/price-alerts", ac.GetPriceAlerts)
	analytics.GET("/dashboard", ac.GetDashboardKPIs)

	return r
}

func performJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// seedObservation writes one ledger row directly, bypassing the invoice flow.
func seedObservation(t *testing.T, db *gorm.DB, productID, supplierID uuid.UUID, date string, unitPrice float64) {
	t.Helper()

	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.PriceHistory{
		ProductID:  productID,
		SupplierID: supplierID,
		Price:      unitPrice,
		Quantity:   1,
		UnitPrice:  unitPrice,
		Date:       d,
	}).Error)
}

func mustCreate[T any](t *testing.T, db *gorm.DB, record *T) *T {
	t.Helper()
	require.NoError(t, db.Create(record).Error)
	return record
}
