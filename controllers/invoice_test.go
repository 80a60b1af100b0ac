package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"pricetrack-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveInvoice(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	product := mustCreate(t, db, &models.Product{Name: "Sable broyé 0/2", Unit: "tonne"})

	w := performJSON(t, r, "POST", "/api/invoices", map[string]any{
		"supplierName":  "DENIER ENERGIES",
		"invoiceNumber": "FAC-2024-0042",
		"invoiceDate":   "2024-01-15",
		"totalAmount":   356.25,
		"lines": []map[string]any{
			{
				"productId":      product.ID.String(),
				"rawDescription": "Sable broyé 0/2    12.5 kg   28,50 €",
				"quantity":       12.5,
				"unitPrice":      28.50,
				"totalPrice":     356.25,
			},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])

	var supplier models.Supplier
	require.NoError(t, db.Where("name = ?", "DENIER ENERGIES").First(&supplier).Error)

	var invoice models.Invoice
	require.NoError(t, db.Preload("Lines").First(&invoice, "invoice_number = ?", "FAC-2024-0042").Error)
	assert.Equal(t, supplier.ID, invoice.SupplierID)
	assert.Equal(t, "validated", invoice.Status)
	assert.Equal(t, "EUR", invoice.Currency)
	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, "validated", invoice.Lines[0].ValidationStatus)

	var observations []models.PriceHistory
	require.NoError(t, db.Find(&observations).Error)
	require.Len(t, observations, 1)
	assert.Equal(t, product.ID, observations[0].ProductID)
	assert.Equal(t, supplier.ID, observations[0].SupplierID)
	assert.Equal(t, 28.50, observations[0].UnitPrice)
	assert.Equal(t, 356.25, observations[0].Price)
	assert.Equal(t, 2024, observations[0].Date.Year())
}

func TestSaveInvoiceDefaults(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	w := performJSON(t, r, "POST", "/api/invoices", map[string]any{
		"lines": []map[string]any{
			{"rawDescription": "Ligne non rapprochée 15,00", "totalPrice": 15.00},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)

	// missing supplier name falls back to the catch-all supplier
	var supplier models.Supplier
	require.NoError(t, db.Where("name = ?", "Fournisseur inconnu").First(&supplier).Error)

	var line models.InvoiceLine
	require.NoError(t, db.First(&line).Error)
	assert.Nil(t, line.ProductID)
	assert.Equal(t, 1.0, line.Quantity)

	// no product, no unit price: nothing lands in the ledger
	var count int64
	db.Model(&models.PriceHistory{}).Count(&count)
	assert.Zero(t, count)
}

func TestSaveInvoiceCreatesNewProduct(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	w := performJSON(t, r, "POST", "/api/invoices", map[string]any{
		"supplierName": "GLC MATERIAUX",
		"invoiceDate":  "2024-05-18",
		"lines": []map[string]any{
			{
				"newProductName": "Gravier roulé 10/20",
				"newProductUnit": "tonne",
				"rawDescription": "Gravier roulé 10/20 2t 46,80",
				"quantity":       2.0,
				"unitPrice":      23.40,
				"totalPrice":     46.80,
			},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var product models.Product
	require.NoError(t, db.Where("name = ?", "Gravier roulé 10/20").First(&product).Error)
	assert.Equal(t, "tonne", product.Unit)

	var observation models.PriceHistory
	require.NoError(t, db.First(&observation).Error)
	assert.Equal(t, product.ID, observation.ProductID)
	assert.Equal(t, 23.40, observation.UnitPrice)
}

func TestSaveInvoiceReusesExistingSupplier(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	existing := mustCreate(t, db, &models.Supplier{Name: "CRT"})

	w := performJSON(t, r, "POST", "/api/invoices", map[string]any{
		"supplierName": "CRT",
		"lines":        []map[string]any{},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var count int64
	db.Model(&models.Supplier{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var invoice models.Invoice
	require.NoError(t, db.First(&invoice).Error)
	assert.Equal(t, existing.ID, invoice.SupplierID)
}

func TestSaveInvoiceBadDate(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	w := performJSON(t, r, "POST", "/api/invoices", map[string]any{
		"invoiceDate": "15/01/2024",
		"lines":       []map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetInvoicesPagination(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	supplier := mustCreate(t, db, &models.Supplier{Name: "CRT"})
	for i := 0; i < 3; i++ {
		mustCreate(t, db, &models.Invoice{SupplierID: supplier.ID})
	}

	w := performJSON(t, r, "GET", "/api/invoices?page=1&perPage=2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["pages"])
	assert.Equal(t, float64(1), body["currentPage"])
	assert.Len(t, body["invoices"].([]any), 2)
}

func TestGetInvoiceNotFound(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	w := performJSON(t, r, "GET", "/api/invoices/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performJSON(t, r, "GET", "/api/invoices/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteInvoiceKeepsLedger(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	product := mustCreate(t, db, &models.Product{Name: "Ciment CEM II 32.5"})
	r2 := performJSON(t, r, "POST", "/api/invoices", map[string]any{
		"supplierName":  "CRT",
		"invoiceNumber": "FAC-0001",
		"invoiceDate":   "2024-01-08",
		"lines": []map[string]any{
			{
				"productId":      product.ID.String(),
				"rawDescription": "Ciment CEM II 32.5 50 sacs 445,00",
				"quantity":       50.0,
				"unitPrice":      8.90,
				"totalPrice":     445.00,
			},
		},
	})
	require.Equal(t, http.StatusCreated, r2.Code)

	var invoice models.Invoice
	require.NoError(t, db.First(&invoice).Error)

	w := performJSON(t, r, "DELETE", "/api/invoices/"+invoice.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var invoices, lines, observations int64
	db.Model(&models.Invoice{}).Count(&invoices)
	db.Model(&models.InvoiceLine{}).Count(&lines)
	db.Model(&models.PriceHistory{}).Count(&observations)
	assert.Zero(t, invoices)
	assert.Zero(t, lines)
	// observations outlive the invoice that produced them
	assert.Equal(t, int64(1), observations)
}

func TestUploadInvoice(t *testing.T) {
	db := setupTestDB(t)
	mustCreate(t, db, &models.Product{Name: "Sable broyé 0/2", Unit: "tonne"})

	extractor := stubExtractor{text: "Facture : FAC-2024-0042\nDate: 15/01/2024\nSable broyé 0/2    12.5 kg   28,50 €"}
	r := newTestRouter(extractor, t.TempDir())

	w := uploadFile(t, r, "scan.png", []byte("fake image bytes"))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])

	parsed := body["parsedData"].(map[string]any)
	assert.Equal(t, "FAC-2024-0042", parsed["invoiceNumber"])

	lines := parsed["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Equal(t, 28.50, line["totalPrice"])

	suggestions := line["suggestedProducts"].([]any)
	require.NotEmpty(t, suggestions)
	best := suggestions[0].(map[string]any)
	assert.Equal(t, "Sable broyé 0/2", best["product"].(map[string]any)["Name"])
	assert.Equal(t, line["productMatchConfidence"], best["similarity"])
}

func TestUploadInvoiceRejectsExtension(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	w := uploadFile(t, r, "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func uploadFile(t *testing.T, r *gin.Engine, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/invoices/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
