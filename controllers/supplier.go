// controllers/supplier.go
package controllers

import (
	"errors"
	"net/http"

	"pricetrack-backend/config"
	"pricetrack-backend/models"
	"pricetrack-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateSupplierInput defines the expected JSON structure for creating a supplier
type CreateSupplierInput struct {
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address"`
	ContactInfo string `json:"contactInfo"`
}

// CreateSupplier creates a new supplier
func CreateSupplier(c *gin.Context) {
	var input CreateSupplierInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Supplier names are unique; duplicates come back as a conflict
	var existing models.Supplier
	if err := config.DB.Where("name = ?", input.Name).First(&existing).Error; err == nil {
		utils.RespondWithError(c, http.StatusConflict, "Supplier with this name already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	supplier := models.Supplier{
		Name:        input.Name,
		Address:     input.Address,
		ContactInfo: input.ContactInfo,
	}

	if err := config.DB.Create(&supplier).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create supplier")
		return
	}

	c.JSON(http.StatusCreated, supplier)
}

// GetSuppliers retrieves all suppliers
func GetSuppliers(c *gin.Context) {
	var suppliers []models.Supplier
	if err := config.DB.Order("name asc").Find(&suppliers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve suppliers")
		return
	}

	c.JSON(http.StatusOK, suppliers)
}

// GetSupplier retrieves a specific supplier by ID
func GetSupplier(c *gin.Context) {
	supplierUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid supplier ID format")
		return
	}

	var supplier models.Supplier
	if err := config.DB.First(&supplier, "id = ?", supplierUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Supplier not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, supplier)
}
