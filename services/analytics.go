// services/analytics.go
package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"pricetrack-backend/models"
)

// Period granularities accepted by the price-evolution aggregation.
const (
	GranularityMonthly   = "monthly"
	GranularityQuarterly = "quarterly"
	GranularityYearly    = "yearly"
)

// Thresholds shared by the analytics engines. These mirror long-standing
// operator expectations; changing them changes what counts as "volatile"
// or "significant" everywhere at once.
const (
	SignificantVariationPercent = 15.0 // bucket-over-bucket evolution flag

	highVolatilityCV   = 20.0 // coefficient of variation above this: high
	mediumVolatilityCV = 10.0 // above this: medium, else low

	AlertDefaultThresholdPercent = 15.0 // minimum |variation| to alert on
	AlertDefaultWindowDays       = 30   // how far back the alert scan looks
	highSeverityVariationPercent = 25.0 // |variation| above this: high severity

	recentTrendWindowDays = 90  // supplier-trend sub-window
	recentTrendMaxPoints  = 5   // most recent observations considered
	trendVariationPercent = 5.0 // +/- band outside which a trend is called
)

// EvolutionPoint summarizes one period bucket of price observations.
// VariationPercent is nil on the first bucket, where it is undefined.
type EvolutionPoint struct {
	Period           string   `json:"period"`
	AveragePrice     float64  `json:"averagePrice"`
	MinPrice         float64  `json:"minPrice"`
	MaxPrice         float64  `json:"maxPrice"`
	DataPoints       int      `json:"dataPoints"`
	Suppliers        []string `json:"suppliers"`
	VariationPercent *float64 `json:"variationPercent,omitempty"`
	IsSignificant    bool     `json:"isSignificant,omitempty"`
}

// BuildPriceEvolution buckets date-ordered observations by period and
// computes per-bucket statistics plus period-over-period variation.
// Every observation lands in exactly one bucket; buckets come back sorted
// ascending by period key.
func BuildPriceEvolution(observations []models.PriceHistory, granularity string) []EvolutionPoint {
	grouped := make(map[string][]models.PriceHistory)
	var keys []string
	for _, obs := range observations {
		key := periodKey(obs.Date, granularity)
		if _, seen := grouped[key]; !seen {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], obs)
	}
	sort.Strings(keys)

	evolution := make([]EvolutionPoint, 0, len(keys))
	for _, key := range keys {
		bucket := grouped[key]
		var sum float64
		minPrice := bucket[0].UnitPrice
		maxPrice := bucket[0].UnitPrice
		var suppliers []string
		seen := make(map[string]bool)
		for _, obs := range bucket {
			sum += obs.UnitPrice
			if obs.UnitPrice < minPrice {
				minPrice = obs.UnitPrice
			}
			if obs.UnitPrice > maxPrice {
				maxPrice = obs.UnitPrice
			}
			name := obs.Supplier.Name
			if name == "" {
				name = "Inconnu"
			}
			if !seen[name] {
				seen[name] = true
				suppliers = append(suppliers, name)
			}
		}
		evolution = append(evolution, EvolutionPoint{
			Period:       key,
			AveragePrice: round2(sum / float64(len(bucket))),
			MinPrice:     round2(minPrice),
			MaxPrice:     round2(maxPrice),
			DataPoints:   len(bucket),
			Suppliers:    suppliers,
		})
	}

	for i := 1; i < len(evolution); i++ {
		variation := round2(percentChange(evolution[i].AveragePrice, evolution[i-1].AveragePrice))
		evolution[i].VariationPercent = &variation
		evolution[i].IsSignificant = math.Abs(variation) > SignificantVariationPercent
	}
	return evolution
}

func periodKey(date time.Time, granularity string) string {
	switch granularity {
	case GranularityQuarterly:
		quarter := (int(date.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", date.Year(), quarter)
	case GranularityYearly:
		return strconv.Itoa(date.Year())
	default:
		return date.Format("2006-01")
	}
}

// VolatilityStats carries the dispersion measures for one product.
type VolatilityStats struct {
	MeanPrice            float64   `json:"meanPrice"`
	StdDeviation         float64   `json:"stdDeviation"`
	CoefficientVariation float64   `json:"coefficientVariation"`
	MinPrice             float64   `json:"minPrice"`
	MaxPrice             float64   `json:"maxPrice"`
	PriceRange           float64   `json:"priceRange"`
	DataPoints           int       `json:"dataPoints"`
	SuppliersCount       int       `json:"suppliersCount"`
	LastUpdate           time.Time `json:"lastUpdate"`
}

type ProductVolatility struct {
	Product         models.Product  `json:"product"`
	Statistics      VolatilityStats `json:"statistics"`
	VolatilityLevel string          `json:"volatilityLevel"` // high, medium, low
}

// ComputeVolatility aggregates a product's full price history. Only
// observations with a positive unit price feed the dispersion statistics;
// a product with fewer than two of them reports ok=false and is left out
// of volatility rankings.
func ComputeVolatility(product models.Product, observations []models.PriceHistory) (ProductVolatility, bool) {
	var prices []float64
	for _, obs := range observations {
		if obs.UnitPrice > 0 {
			prices = append(prices, obs.UnitPrice)
		}
	}
	if len(prices) < 2 {
		return ProductVolatility{}, false
	}

	var sum float64
	minPrice := prices[0]
	maxPrice := prices[0]
	for _, p := range prices {
		sum += p
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}
	mean := sum / float64(len(prices))
	stdDev := sampleStdDev(prices, mean)
	cv := 0.0
	if mean > 0 {
		cv = stdDev / mean * 100
	}

	suppliers := make(map[string]bool)
	var lastUpdate time.Time
	for _, obs := range observations {
		suppliers[obs.SupplierID.String()] = true
		if obs.Date.After(lastUpdate) {
			lastUpdate = obs.Date
		}
	}

	level := "low"
	if cv > highVolatilityCV {
		level = "high"
	} else if cv > mediumVolatilityCV {
		level = "medium"
	}

	return ProductVolatility{
		Product: product,
		Statistics: VolatilityStats{
			MeanPrice:            round2(mean),
			StdDeviation:         round2(stdDev),
			CoefficientVariation: round2(cv),
			MinPrice:             round2(minPrice),
			MaxPrice:             round2(maxPrice),
			PriceRange:           round2(maxPrice - minPrice),
			DataPoints:           len(prices),
			SuppliersCount:       len(suppliers),
			LastUpdate:           lastUpdate,
		},
		VolatilityLevel: level,
	}, true
}

// RankByVolatility orders products most volatile first and caps the list.
func RankByVolatility(items []ProductVolatility, limit int) []ProductVolatility {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Statistics.CoefficientVariation > items[j].Statistics.CoefficientVariation
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// PriceAlert flags a significant change between a product's two most
// recent observations.
type PriceAlert struct {
	Product          models.Product  `json:"product"`
	Supplier         models.Supplier `json:"supplier"`
	PreviousPrice    float64         `json:"previousPrice"`
	CurrentPrice     float64         `json:"currentPrice"`
	VariationPercent float64         `json:"variationPercent"`
	AlertType        string          `json:"alertType"` // increase, decrease
	Severity         string          `json:"severity"`  // high, medium
	Date             time.Time       `json:"date"`
}

// DetectPriceAlert compares the two most recent observations (recent must
// be sorted newest first) and emits an alert when the absolute variation
// meets the threshold. A zero previous price yields zero variation rather
// than a division error, so such pairs never alert.
func DetectPriceAlert(product models.Product, recent []models.PriceHistory, threshold float64) (PriceAlert, bool) {
	if len(recent) < 2 {
		return PriceAlert{}, false
	}
	latest := recent[0]
	previous := recent[1]
	variation := percentChange(latest.UnitPrice, previous.UnitPrice)
	if math.Abs(variation) < threshold {
		return PriceAlert{}, false
	}

	alertType := "decrease"
	if variation > 0 {
		alertType = "increase"
	}
	severity := "medium"
	if math.Abs(variation) > highSeverityVariationPercent {
		severity = "high"
	}
	return PriceAlert{
		Product:          product,
		Supplier:         latest.Supplier,
		PreviousPrice:    round2(previous.UnitPrice),
		CurrentPrice:     round2(latest.UnitPrice),
		VariationPercent: round2(variation),
		AlertType:        alertType,
		Severity:         severity,
		Date:             latest.Date,
	}, true
}

// SortAlerts orders alerts by absolute variation, largest first.
func SortAlerts(alerts []PriceAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return math.Abs(alerts[i].VariationPercent) > math.Abs(alerts[j].VariationPercent)
	})
}

// SupplierPricing aggregates one supplier's observations for a product.
type SupplierPricing struct {
	AveragePrice  float64   `json:"averagePrice"`
	MinPrice      float64   `json:"minPrice"`
	MaxPrice      float64   `json:"maxPrice"`
	DataPoints    int       `json:"dataPoints"`
	TotalQuantity float64   `json:"totalQuantity"`
	Stability     float64   `json:"stability"` // stdev of unit price, 0 with <2 obs
	LastUpdate    time.Time `json:"lastUpdate"`
}

type SupplierComparison struct {
	Supplier    models.Supplier `json:"supplier"`
	Pricing     SupplierPricing `json:"pricing"`
	RecentTrend string          `json:"recentTrend"` // increasing, decreasing, stable
	IsBestPrice bool            `json:"isBestPrice"`
}

// CompareSuppliers groups a product's observations by supplier, ranks the
// suppliers cheapest first and flags the lowest average price as best.
// The recent trend looks at a bounded sub-window: observations from the
// last 90 days, at most the 5 most recent, oldest versus newest.
func CompareSuppliers(observations []models.PriceHistory, now time.Time) []SupplierComparison {
	grouped := make(map[string][]models.PriceHistory)
	var order []string
	for _, obs := range observations {
		key := obs.SupplierID.String()
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], obs)
	}

	comparisons := make([]SupplierComparison, 0, len(order))
	for _, key := range order {
		group := grouped[key]
		var sum, totalQuantity float64
		minPrice := group[0].UnitPrice
		maxPrice := group[0].UnitPrice
		var lastUpdate time.Time
		var prices []float64
		for _, obs := range group {
			sum += obs.UnitPrice
			totalQuantity += obs.Quantity
			prices = append(prices, obs.UnitPrice)
			if obs.UnitPrice < minPrice {
				minPrice = obs.UnitPrice
			}
			if obs.UnitPrice > maxPrice {
				maxPrice = obs.UnitPrice
			}
			if obs.Date.After(lastUpdate) {
				lastUpdate = obs.Date
			}
		}
		mean := sum / float64(len(group))

		comparisons = append(comparisons, SupplierComparison{
			Supplier: group[0].Supplier,
			Pricing: SupplierPricing{
				AveragePrice:  round2(mean),
				MinPrice:      round2(minPrice),
				MaxPrice:      round2(maxPrice),
				DataPoints:    len(group),
				TotalQuantity: round2(totalQuantity),
				Stability:     round2(sampleStdDev(prices, mean)),
				LastUpdate:    lastUpdate,
			},
			RecentTrend: recentTrend(group, now),
		})
	}

	sort.SliceStable(comparisons, func(i, j int) bool {
		return comparisons[i].Pricing.AveragePrice < comparisons[j].Pricing.AveragePrice
	})
	if len(comparisons) > 0 {
		comparisons[0].IsBestPrice = true
	}
	return comparisons
}

func recentTrend(observations []models.PriceHistory, now time.Time) string {
	cutoff := now.AddDate(0, 0, -recentTrendWindowDays)
	var recent []models.PriceHistory
	for _, obs := range observations {
		if !obs.Date.Before(cutoff) {
			recent = append(recent, obs)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if len(recent) > recentTrendMaxPoints {
		recent = recent[:recentTrendMaxPoints]
	}
	if len(recent) < 2 {
		return "stable"
	}
	oldest := recent[len(recent)-1].UnitPrice
	newest := recent[0].UnitPrice
	variation := percentChange(newest, oldest)
	switch {
	case variation > trendVariationPercent:
		return "increasing"
	case variation < -trendVariationPercent:
		return "decreasing"
	default:
		return "stable"
	}
}

// percentChange is the shared zero-guarded ratio: a zero previous value
// evaluates to 0 instead of Inf/NaN.
func percentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func sampleStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
