package main

import (
	"fmt"
	"log"
	"os"

	"pricetrack-backend/config"
	"pricetrack-backend/models"
	"pricetrack-backend/routes"
	"pricetrack-backend/seed"
	"pricetrack-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.Product{},
		&models.Supplier{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.PriceHistory{},
		&models.AlertLog{},
	)

	if os.Getenv("SEED_SAMPLE_DATA") == "true" {
		if err := seed.Run(config.DB); err != nil {
			log.Printf("Sample data seeding failed: %v", err)
		}
	}
}

func main() {

	services.NewAlertService(config.DB).StartScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter()
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
