// Package seed loads a small demo dataset so the analytics endpoints
// return something meaningful on a fresh database.
package seed

import (
	"fmt"
	"log"
	"time"

	"pricetrack-backend/models"

	"gorm.io/gorm"
)

type observation struct {
	date      string
	unitPrice float64
	quantity  float64
}

type productSeed struct {
	name     string
	category string
	unit     string
	supplier string
	series   []observation
}

var suppliers = []models.Supplier{
	{Name: "DENIER ENERGIES", Address: "12 rue des Carrières, 69100 Villeurbanne", ContactInfo: "contact@denier-energies.fr"},
	{Name: "GLC MATERIAUX", Address: "ZA du Pont, 38300 Bourgoin-Jallieu", ContactInfo: "04 74 00 00 00"},
	{Name: "CRT", Address: "8 avenue de l'Industrie, 42000 Saint-Étienne", ContactInfo: "commandes@crt.fr"},
	{Name: "NOUVEAU FOURNISSEUR SARL", Address: "3 impasse des Lilas, 01000 Bourg-en-Bresse", ContactInfo: "info@nouveau-fournisseur.fr"},
}

var products = []productSeed{
	{
		name: "Sable broyé 0/2", category: "Granulats", unit: "tonne",
		supplier: "DENIER ENERGIES",
		series: []observation{
			{"2024-01-15", 28.50, 12.5},
			{"2024-03-20", 28.63, 10.0},
			{"2024-06-12", 29.10, 15.0},
			{"2024-08-30", 30.20, 8.0},
			{"2024-11-30", 28.63, 12.0},
		},
	},
	{
		name: "Gravier 10/20", category: "Granulats", unit: "tonne",
		supplier: "GLC MATERIAUX",
		series: []observation{
			{"2024-02-10", 22.00, 20.0},
			{"2024-05-18", 23.40, 18.0},
			{"2024-09-02", 26.80, 22.0},
			{"2024-12-15", 24.10, 20.0},
		},
	},
	{
		name: "Ciment CEM II 32.5", category: "Liants", unit: "sac",
		supplier: "CRT",
		series: []observation{
			{"2024-01-08", 8.90, 50.0},
			{"2024-04-22", 9.15, 40.0},
			{"2024-07-30", 9.05, 60.0},
			{"2024-10-12", 9.60, 45.0},
		},
	},
	{
		name: "Gasoil non routier", category: "Carburants", unit: "litre",
		supplier: "DENIER ENERGIES",
		series: []observation{
			{"2024-03-05", 1.42, 500.0},
			{"2024-06-20", 1.58, 500.0},
			{"2024-09-14", 1.31, 600.0},
			{"2024-12-01", 1.49, 500.0},
		},
	},
	{
		name: "Béton prêt à l'emploi C25/30", category: "Bétons", unit: "m3",
		supplier: "NOUVEAU FOURNISSEUR SARL",
		series: []observation{
			{"2024-05-02", 95.00, 6.0},
			{"2024-08-19", 97.50, 8.0},
			{"2024-11-25", 96.20, 6.0},
		},
	},
}

// Run inserts the demo suppliers, products, invoices and price history.
// It is idempotent: a database that already has suppliers is left alone.
func Run(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Supplier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Sample data already present, skipping seed")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		supplierByName := make(map[string]models.Supplier, len(suppliers))
		for _, s := range suppliers {
			supplier := s
			if err := tx.Create(&supplier).Error; err != nil {
				return err
			}
			supplierByName[supplier.Name] = supplier
		}

		invoiceSeq := 0
		for _, p := range products {
			product := models.Product{Name: p.name, Category: p.category, Unit: p.unit}
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			supplier := supplierByName[p.supplier]

			for _, obs := range p.series {
				date, err := time.Parse("2006-01-02", obs.date)
				if err != nil {
					return err
				}
				invoiceSeq++
				total := obs.unitPrice * obs.quantity

				invoice := models.Invoice{
					InvoiceNumber: fmt.Sprintf("FAC-%04d", invoiceSeq),
					InvoiceDate:   date,
					SupplierID:    supplier.ID,
					TotalAmount:   total,
					Currency:      "EUR",
					Status:        "validated",
					OCRConfidence: 0.9,
				}
				if err := tx.Create(&invoice).Error; err != nil {
					return err
				}

				now := time.Now()
				line := models.InvoiceLine{
					InvoiceID:              invoice.ID,
					ProductID:              &product.ID,
					RawDescription:         fmt.Sprintf("%s %.1f %s %.2f €", p.name, obs.quantity, p.unit, obs.unitPrice),
					Quantity:               obs.quantity,
					UnitPrice:              obs.unitPrice,
					TotalPrice:             total,
					OCRConfidence:          0.9,
					ProductMatchConfidence: 1.0,
					ValidationStatus:       "validated",
					ValidatedBy:            "seed",
					ValidatedAt:            &now,
				}
				if err := tx.Create(&line).Error; err != nil {
					return err
				}

				history := models.PriceHistory{
					ProductID:     product.ID,
					SupplierID:    supplier.ID,
					InvoiceLineID: line.ID,
					Price:         total,
					Quantity:      obs.quantity,
					UnitPrice:     obs.unitPrice,
					Date:          date,
				}
				if err := tx.Create(&history).Error; err != nil {
					return err
				}
			}
		}

		log.Printf("Seeded %d suppliers, %d products and %d invoices", len(suppliers), len(products), invoiceSeq)
		return nil
	})
}
