// controllers/analytics.go
package controllers

import (
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"pricetrack-backend/config"
	"pricetrack-backend/models"
	"pricetrack-backend/services"
	"pricetrack-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalyticsController handles all read-only analytics over the
// price-history ledger
type AnalyticsController struct{}

// GetPriceEvolution returns per-period price statistics for a product,
// optionally filtered to one supplier. A product without observations is
// a 404: "no data yet" is distinct from "flat history".
func (ac *AnalyticsController) GetPriceEvolution(c *gin.Context) {
	productUUID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	granularity := c.DefaultQuery("granularity", services.GranularityMonthly)
	switch granularity {
	case services.GranularityMonthly, services.GranularityQuarterly, services.GranularityYearly:
	default:
		utils.RespondWithError(c, http.StatusBadRequest, "Granularity must be monthly, quarterly or yearly")
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

	query := config.DB.Preload("Supplier").Where("product_id = ?", productUUID)
	if v := c.Query("supplierId"); v != "" {
		supplierUUID, err := uuid.Parse(v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid supplier ID format")
			return
		}
		query = query.Where("supplier_id = ?", supplierUUID)
	}

	var observations []models.PriceHistory
	if err := query.Order("date asc").Find(&observations).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve price history")
		return
	}
	if len(observations) == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "No price data found for this product")
		return
	}

	evolution := services.BuildPriceEvolution(observations, granularity)

	c.JSON(http.StatusOK, gin.H{
		"product":         product,
		"granularity":     granularity,
		"evolution":       evolution,
		"totalDataPoints": len(observations),
	})
}

// GetPriceVolatility ranks products by coefficient of variation, most
// volatile first. Products with fewer than two priced observations are
// excluded rather than reported as perfectly stable.
func (ac *AnalyticsController) GetPriceVolatility(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var products []models.Product
	if err := config.DB.Find(&products).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	var report []services.ProductVolatility
	for _, product := range products {
		var observations []models.PriceHistory
		if err := config.DB.Where("product_id = ?", product.ID).Find(&observations).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve price history")
			return
		}
		if volatility, ok := services.ComputeVolatility(product, observations); ok {
			report = append(report, volatility)
		}
	}

	totalProducts := len(report)
	report = services.RankByVolatility(report, limit)

	c.JSON(http.StatusOK, gin.H{
		"products":      report,
		"totalProducts": totalProducts,
	})
}

// GetSupplierComparison compares suppliers for one product, cheapest
// average price first.
func (ac *AnalyticsController) GetSupplierComparison(c *gin.Context) {
	productUUID, err := uuid.Parse(c.Param("productId"))
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

	var observations []models.PriceHistory
	if err := config.DB.Preload("Supplier").
		Where("product_id = ?", productUUID).
		Order("date asc").
		Find(&observations).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve price history")
		return
	}
	if len(observations) == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "No price data found for this product")
		return
	}

	comparison := services.CompareSuppliers(observations, time.Now())

	c.JSON(http.StatusOK, gin.H{
		"product":             product,
		"suppliersComparison": comparison,
		"totalSuppliers":      len(comparison),
	})
}

// GetPriceAlerts flags products whose two most recent observations inside
// the window differ by at least the threshold percentage.
func (ac *AnalyticsController) GetPriceAlerts(c *gin.Context) {
	threshold := services.AlertDefaultThresholdPercent
	if v := c.Query("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Threshold must be a non-negative number")
			return
		}
		threshold = parsed
	}
	days := services.AlertDefaultWindowDays
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	alerts := services.ScanPriceAlerts(config.DB, threshold, days)
	if alerts == nil {
		alerts = []services.PriceAlert{}
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":      alerts,
		"threshold":   threshold,
		"periodDays":  days,
		"totalAlerts": len(alerts),
	})
}

type volatileProduct struct {
	Product              models.Product `json:"product"`
	CoefficientVariation float64        `json:"coefficientVariation"`
}

type trendPoint struct {
	Month        string  `json:"month"`
	AveragePrice float64 `json:"averagePrice"`
}

// GetDashboardKPIs returns the headline numbers for the main dashboard
func (ac *AnalyticsController) GetDashboardKPIs(c *gin.Context) {
	var totalInvoices, totalProducts, totalSuppliers int64
	config.DB.Model(&models.Invoice{}).Count(&totalInvoices)
	config.DB.Model(&models.Product{}).Count(&totalProducts)
	config.DB.Model(&models.Supplier{}).Count(&totalSuppliers)

	now := time.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var monthlyInvoices int64
	config.DB.Model(&models.Invoice{}).Where("created_at >= ?", firstOfMonth).Count(&monthlyInvoices)

	// Top 5 most volatile products; the product scan is capped for
	// dashboard responsiveness
	var products []models.Product
	config.DB.Limit(50).Find(&products)

	var volatile []volatileProduct
	for _, product := range products {
		var observations []models.PriceHistory
		if err := config.DB.Where("product_id = ?", product.ID).Find(&observations).Error; err != nil {
			continue
		}
		if volatility, ok := services.ComputeVolatility(product, observations); ok {
			volatile = append(volatile, volatileProduct{
				Product:              product,
				CoefficientVariation: volatility.Statistics.CoefficientVariation,
			})
		}
	}
	sort.SliceStable(volatile, func(i, j int) bool {
		return volatile[i].CoefficientVariation > volatile[j].CoefficientVariation
	})
	if len(volatile) > 5 {
		volatile = volatile[:5]
	}

	// Global average-price trend over the last 12 months
	var recentObservations []models.PriceHistory
	config.DB.Where("date >= ?", now.AddDate(0, 0, -365)).
		Order("date asc").
		Find(&recentObservations)

	priceTrend := monthlyAverages(recentObservations)

	globalVariation := 0.0
	if len(priceTrend) >= 2 {
		first := priceTrend[0].AveragePrice
		last := priceTrend[len(priceTrend)-1].AveragePrice
		if first > 0 {
			globalVariation = (last - first) / first * 100
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"kpis": gin.H{
			"totalInvoices":        totalInvoices,
			"totalProducts":        totalProducts,
			"totalSuppliers":       totalSuppliers,
			"monthlyInvoices":      monthlyInvoices,
			"globalPriceVariation": round2(globalVariation),
		},
		"topVolatileProducts": volatile,
		"priceTrend":          priceTrend,
	})
}

func monthlyAverages(observations []models.PriceHistory) []trendPoint {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var months []string
	for _, obs := range observations {
		month := obs.Date.Format("2006-01")
		if counts[month] == 0 {
			months = append(months, month)
		}
		sums[month] += obs.UnitPrice
		counts[month]++
	}
	sort.Strings(months)

	trend := make([]trendPoint, 0, len(months))
	for _, month := range months {
		trend = append(trend, trendPoint{
			Month:        month,
			AveragePrice: round2(sums[month] / float64(counts[month])),
		})
	}
	return trend
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
