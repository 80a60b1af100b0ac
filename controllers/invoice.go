// controllers/invoice.go
package controllers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pricetrack-backend/config"
	"pricetrack-backend/models"
	"pricetrack-backend/services"
	"pricetrack-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// InvoiceController handles the upload → parse → validate → save flow.
// The extractor and upload directory are injected so no package-wide
// state is involved.
type InvoiceController struct {
	Extractor services.TextExtractor
	UploadDir string
}

func NewInvoiceController(extractor services.TextExtractor) *InvoiceController {
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &InvoiceController{Extractor: extractor, UploadDir: uploadDir}
}

// DraftLine is a parsed candidate line enriched with product suggestions
// for the validation UI.
type DraftLine struct {
	services.CandidateLine
	SuggestedProducts      []services.ProductSuggestion `json:"suggestedProducts"`
	ProductMatchConfidence float64                      `json:"productMatchConfidence"`
}

// UploadInvoice stores the uploaded document, runs OCR and parsing, and
// returns the draft for operator validation. Nothing is persisted to the
// ledger at this stage.
func (ic *InvoiceController) UploadInvoice(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "No file provided")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		utils.RespondWithError(c, http.StatusBadRequest, "File type not allowed")
		return
	}

	if err := os.MkdirAll(ic.UploadDir, 0o755); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to prepare upload directory")
		return
	}

	filename := time.Now().Format("20060102_150405_") + filepath.Base(file.Filename)
	filePath := filepath.Join(ic.UploadDir, filename)
	if err := c.SaveUploadedFile(file, filePath); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to store file")
		return
	}

	// OCR is best effort: a failed extraction becomes an empty draft the
	// operator fills in manually.
	extractedText, err := ic.Extractor.ExtractText(filePath)
	if err != nil {
		log.Printf("OCR failed for %s: %v", filename, err)
		extractedText = ""
	}

	parsed := services.ParseInvoiceText(extractedText)

	var products []models.Product
	if err := config.DB.Find(&products).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	draftLines := make([]DraftLine, 0, len(parsed.Lines))
	for _, line := range parsed.Lines {
		suggestions := services.FindSimilarProducts(line.RawDescription, products, services.SuggestionThreshold)
		if len(suggestions) > services.MaxSuggestions {
			suggestions = suggestions[:services.MaxSuggestions]
		}
		matchConfidence := 0.0
		if len(suggestions) > 0 {
			matchConfidence = suggestions[0].Similarity
		}
		draftLines = append(draftLines, DraftLine{
			CandidateLine:          line,
			SuggestedProducts:      suggestions,
			ProductMatchConfidence: matchConfidence,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"filePath":      filePath,
		"extractedText": extractedText,
		"parsedData": gin.H{
			"invoiceNumber": parsed.InvoiceNumber,
			"invoiceDate":   parsed.InvoiceDate,
			"lines":         draftLines,
		},
		"globalConfidence": services.GlobalConfidence(parsed.Lines),
	})
}

// SaveInvoiceLineInput is one operator-validated line
type SaveInvoiceLineInput struct {
	ProductID              *uuid.UUID `json:"productId"`
	NewProductName         string     `json:"newProductName"`
	NewProductCategory     string     `json:"newProductCategory"`
	NewProductUnit         string     `json:"newProductUnit"`
	RawDescription         string     `json:"rawDescription" binding:"required"`
	Quantity               float64    `json:"quantity"`
	UnitPrice              float64    `json:"unitPrice"`
	TotalPrice             float64    `json:"totalPrice"`
	OCRConfidence          float64    `json:"ocrConfidence"`
	ProductMatchConfidence float64    `json:"productMatchConfidence"`
}

// SaveInvoiceInput defines the expected JSON structure for saving a
// validated invoice
type SaveInvoiceInput struct {
	SupplierName     string                 `json:"supplierName"`
	InvoiceNumber    string                 `json:"invoiceNumber"`
	InvoiceDate      string                 `json:"invoiceDate"` // YYYY-MM-DD
	TotalAmount      float64                `json:"totalAmount"`
	Currency         string                 `json:"currency"`
	GlobalConfidence float64                `json:"globalConfidence"`
	FilePath         string                 `json:"filePath"`
	Lines            []SaveInvoiceLineInput `json:"lines"`
}

// SaveInvoice persists an operator-validated invoice: supplier
// (find-or-create by name), invoice, lines, and one price observation per
// line that carries a product and a positive unit price. The whole save is
// one transaction; any failure rolls everything back.
func (ic *InvoiceController) SaveInvoice(c *gin.Context) {
	var input SaveInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	supplierName := input.SupplierName
	if supplierName == "" {
		supplierName = "Fournisseur inconnu"
	}

	invoiceDate := time.Now()
	if input.InvoiceDate != "" {
		parsed, err := time.Parse("2006-01-02", input.InvoiceDate)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invoice date must be YYYY-MM-DD")
			return
		}
		invoiceDate = parsed
	}

	currency := input.Currency
	if currency == "" {
		currency = "EUR"
	}

	var invoice models.Invoice
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var supplier models.Supplier
		if err := tx.Where("name = ?", supplierName).First(&supplier).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			supplier = models.Supplier{Name: supplierName}
			if err := tx.Create(&supplier).Error; err != nil {
				return err
			}
		}

		invoice = models.Invoice{
			InvoiceNumber: input.InvoiceNumber,
			InvoiceDate:   invoiceDate,
			SupplierID:    supplier.ID,
			TotalAmount:   input.TotalAmount,
			Currency:      currency,
			Status:        "validated",
			OCRConfidence: input.GlobalConfidence,
			FilePath:      input.FilePath,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}

		now := time.Now()
		for _, lineInput := range input.Lines {
			productID := lineInput.ProductID
			if productID == nil && lineInput.NewProductName != "" {
				product := models.Product{
					Name:     lineInput.NewProductName,
					Category: lineInput.NewProductCategory,
					Unit:     lineInput.NewProductUnit,
				}
				if err := tx.Create(&product).Error; err != nil {
					return err
				}
				productID = &product.ID
			}

			quantity := lineInput.Quantity
			if quantity == 0 {
				quantity = 1.0
			}

			line := models.InvoiceLine{
				InvoiceID:              invoice.ID,
				ProductID:              productID,
				RawDescription:         lineInput.RawDescription,
				Quantity:               quantity,
				UnitPrice:              lineInput.UnitPrice,
				TotalPrice:             lineInput.TotalPrice,
				OCRConfidence:          lineInput.OCRConfidence,
				ProductMatchConfidence: lineInput.ProductMatchConfidence,
				ValidationStatus:       "validated",
				ValidatedBy:            "user",
				ValidatedAt:            &now,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}

			// One ledger row per confirmed line with a product and a price
			if productID != nil && line.UnitPrice > 0 {
				observation := models.PriceHistory{
					ProductID:     *productID,
					SupplierID:    supplier.ID,
					InvoiceLineID: line.ID,
					Price:         line.TotalPrice,
					Quantity:      line.Quantity,
					UnitPrice:     line.UnitPrice,
					Date:          invoice.InvoiceDate,
				}
				if err := tx.Create(&observation).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Failed to save invoice: %v", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save invoice: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"invoiceId": invoice.ID,
		"message":   "Invoice saved successfully",
	})
}

// GetInvoices retrieves invoices, newest first, paginated
func (ic *InvoiceController) GetInvoices(c *gin.Context) {
	page := 1
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	perPage := 10
	if v := c.Query("perPage"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			perPage = n
		}
	}

	var total int64
	if err := config.DB.Model(&models.Invoice{}).Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count invoices")
		return
	}

	var invoices []models.Invoice
	if err := config.DB.Preload("Supplier").Preload("Lines").
		Order("created_at desc").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&invoices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve invoices")
		return
	}

	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices":    invoices,
		"total":       total,
		"pages":       pages,
		"currentPage": page,
	})
}

// GetInvoice retrieves a specific invoice with its lines
func (ic *InvoiceController) GetInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var invoice models.Invoice
	if err := config.DB.Preload("Supplier").Preload("Lines").Preload("Lines.Product").
		First(&invoice, "id = ?", invoiceUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice removes an invoice and its lines. Price observations
// already written from this invoice stay: the ledger is append-only.
func (ic *InvoiceController) DeleteInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var invoice models.Invoice
	if err := config.DB.First(&invoice, "id = ?", invoiceUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete invoice")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}
