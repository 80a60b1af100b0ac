package controllers

import (
	"net/http"
	"testing"

	"pricetrack-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetProduct(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	w := performJSON(t, r, "POST", "/api/products", map[string]any{
		"name":     "Sable broyé 0/2",
		"category": "Granulats",
		"unit":     "tonne",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var product models.Product
	require.NoError(t, db.First(&product).Error)
	assert.Equal(t, "Sable broyé 0/2", product.Name)

	w = performJSON(t, r, "GET", "/api/products/"+product.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, r, "POST", "/api/products", map[string]any{"category": "Granulats"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchProducts(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	mustCreate(t, db, &models.Product{Name: "Sable broyé 0/2"})
	mustCreate(t, db, &models.Product{Name: "Gasoil non routier"})

	w := performJSON(t, r, "GET", "/api/products/match?q=sable+broye&threshold=0.5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 0.5, body["threshold"])

	suggestions := body["suggestions"].([]any)
	require.NotEmpty(t, suggestions)
	best := suggestions[0].(map[string]any)
	assert.Equal(t, "Sable broyé 0/2", best["product"].(map[string]any)["Name"])
}

func TestMatchProductsValidation(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	w := performJSON(t, r, "GET", "/api/products/match", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(t, r, "GET", "/api/products/match?q=sable&threshold=1.5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSupplierConflict(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(stubExtractor{}, t.TempDir())

	mustCreate(t, db, &models.Supplier{Name: "CRT"})

	w := performJSON(t, r, "POST", "/api/suppliers", map[string]any{"name": "CRT"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
