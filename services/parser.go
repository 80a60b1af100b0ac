// services/parser.go
package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Scan windows and confidence weights for OCR'd invoice text. Tuned on
// scanned supplier invoices; the tests pin these values.
const (
	invoiceNumberWindow = 10 // lines searched for an invoice number
	invoiceDateWindow   = 15 // lines searched for an invoice date
	minCandidateLength  = 10 // shorter lines are headers/footers/noise

	baseConfidence       = 0.5
	quantitySignalBonus  = 0.2 // line contains a digit sequence
	richDescriptionBonus = 0.2 // line has more than two tokens
	unitKeywordBonus     = 0.1 // line mentions a unit of measure
)

var (
	invoiceNumberPattern = regexp.MustCompile(`(?i)(?:facture|invoice|n°|no\.?|number)\s*:?\s*([A-Z0-9\-]+)`)
	datePattern          = regexp.MustCompile(`(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`)
	pricePattern         = regexp.MustCompile(`(\d+[,.]\d{2})\s*€?`)
	digitPattern         = regexp.MustCompile(`\d+`)
)

// dateFormats are tried in order; the first layout that parses wins.
var dateFormats = []string{"02/01/2006", "02-01-2006", "02.01.2006", "02/01/06"}

// unitKeywords flag lines that mention a unit of measure.
var unitKeywords = []string{"kg", "pièce", "litre", "unité"}

// CandidateLine is one draft line item extracted from raw OCR text.
type CandidateLine struct {
	LineNumber     int     `json:"lineNumber"`
	RawDescription string  `json:"rawDescription"`
	TotalPrice     float64 `json:"totalPrice"`
	OCRConfidence  float64 `json:"ocrConfidence"`
}

// ParsedInvoice is the draft an operator validates before anything is
// persisted. Fields the parser could not recognize stay empty.
type ParsedInvoice struct {
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceDate   *time.Time      `json:"invoiceDate"`
	Lines         []CandidateLine `json:"lines"`
}

// ParseInvoiceText runs three independent single-pass extractors over the
// same line sequence. It is best effort by contract: malformed or empty
// input yields empty fields and zero candidates, never an error. The human
// validation step is the real correctness gate.
func ParseInvoiceText(text string) ParsedInvoice {
	lines := strings.Split(text, "\n")
	return ParsedInvoice{
		InvoiceNumber: extractInvoiceNumber(lines),
		InvoiceDate:   extractInvoiceDate(lines),
		Lines:         extractCandidateLines(lines),
	}
}

// extractInvoiceNumber scans the top of the document for a label ("facture",
// "invoice", "n°", ...) followed by an alphanumeric token. First match wins.
func extractInvoiceNumber(lines []string) string {
	for _, line := range window(lines, invoiceNumberWindow) {
		if m := invoiceNumberPattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractInvoiceDate stops at the first line whose date-shaped token parses
// against one of the candidate layouts.
func extractInvoiceDate(lines []string) *time.Time {
	for _, line := range window(lines, invoiceDateWindow) {
		m := datePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, layout := range dateFormats {
			if d, err := time.Parse(layout, m[1]); err == nil {
				return &d
			}
		}
	}
	return nil
}

// extractCandidateLines keeps every non-blank line that carries at least one
// price token and enough text to be a plausible item row. The rightmost
// price on an invoice row is conventionally the line amount.
func extractCandidateLines(lines []string) []CandidateLine {
	var candidates []CandidateLine
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		prices := pricePattern.FindAllStringSubmatch(line, -1)
		if len(prices) == 0 || len(line) <= minCandidateLength {
			continue
		}
		last := prices[len(prices)-1][1]
		total, err := strconv.ParseFloat(strings.Replace(last, ",", ".", 1), 64)
		if err != nil {
			continue
		}
		candidates = append(candidates, CandidateLine{
			LineNumber:     i + 1,
			RawDescription: line,
			TotalPrice:     total,
			OCRConfidence:  lineConfidence(line),
		})
	}
	return candidates
}

// lineConfidence is a heuristic accumulation, not a probability.
func lineConfidence(line string) float64 {
	confidence := baseConfidence
	if digitPattern.MatchString(line) {
		confidence += quantitySignalBonus
	}
	if len(strings.Fields(line)) > 2 {
		confidence += richDescriptionBonus
	}
	lower := strings.ToLower(line)
	for _, keyword := range unitKeywords {
		if strings.Contains(lower, keyword) {
			confidence += unitKeywordBonus
			break
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// GlobalConfidence is the mean of the per-line scores, 0 for an empty draft.
func GlobalConfidence(lines []CandidateLine) float64 {
	if len(lines) == 0 {
		return 0
	}
	var sum float64
	for _, line := range lines {
		sum += line.OCRConfidence
	}
	return sum / float64(len(lines))
}

func window(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[:n]
}
