package routes

import (
	"net/http"

	"pricetrack-backend/config"
	"pricetrack-backend/controllers"
	"pricetrack-backend/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return origin == "http://localhost:3000" ||
				origin == "http://localhost:5173"
		},
	}))

	r.Use(config.PerformanceLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// Product routes
		products := api.Group("/products")
		{
			products.POST("", controllers.CreateProduct)
			products.GET("", controllers.GetProducts)
			products.GET("/match", controllers.MatchProducts)
			products.GET("/:id", controllers.GetProduct)
		}

		// Supplier routes
		suppliers := api.Group("/suppliers")
		{
			suppliers.POST("", controllers.CreateSupplier)
			suppliers.GET("", controllers.GetSuppliers)
			suppliers.GET("/:id", controllers.GetSupplier)
		}

		// Invoice routes
		invoiceController := controllers.NewInvoiceController(services.NewTesseractExtractor())
		invoices := api.Group("/invoices")
		{
			invoices.POST("/upload", invoiceController.UploadInvoice)
			invoices.POST("", invoiceController.SaveInvoice)
			invoices.GET("", invoiceController.GetInvoices)
			invoices.GET("/:id", invoiceController.GetInvoice)
			invoices.DELETE("/:id", invoiceController.DeleteInvoice)
		}

		// Analytics routes
		analyticsController := controllers.AnalyticsController{}
		analytics := api.Group("/analytics")
		{
			analytics.GET("/price-evolution/:productId", analyticsController.GetPriceEvolution)
			analytics.GET("/price-volatility", analyticsController.GetPriceVolatility)
			analytics.GET("/supplier-comparison/:productId", analyticsController.GetSupplierComparison)
			analytics.GET("/price-alerts", analyticsController.GetPriceAlerts)
			analytics.GET("/dashboard", analyticsController.GetDashboardKPIs)
		}
	}

	return r
}
