// controllers/product.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pricetrack-backend/config"
	"pricetrack-backend/models"
	"pricetrack-backend/services"
	"pricetrack-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateProductInput defines the expected JSON structure for creating a product
type CreateProductInput struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// CreateProduct creates a new catalog product
func CreateProduct(c *gin.Context) {
	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	product := models.Product{
		Name:     input.Name,
		Category: input.Category,
		Unit:     input.Unit,
	}

	if err := config.DB.Create(&product).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create product")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetProducts retrieves the full product catalog
func GetProducts(c *gin.Context) {
	var products []models.Product
	if err := config.DB.Order("name asc").Find(&products).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct retrieves a specific product by ID
func GetProduct(c *gin.Context) {
	productUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var product models.Product
	if err := config.DB.First(&product, "id = ?", productUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Product not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

// MatchProducts ranks catalog products by similarity to a free-text
// description. Used by the validation UI to map OCR lines onto products.
func MatchProducts(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	threshold := services.DefaultMatchThreshold
	if v := c.Query("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			utils.RespondWithError(c, http.StatusBadRequest, "Threshold must be a number between 0 and 1")
			return
		}
		threshold = parsed
	}

	var products []models.Product
	if err := config.DB.Find(&products).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	suggestions := services.FindSimilarProducts(query, products, threshold)
	c.JSON(http.StatusOK, gin.H{
		"query":       query,
		"threshold":   threshold,
		"suggestions": suggestions,
	})
}
