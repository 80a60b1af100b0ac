// services/matcher.go
package services

import (
	"sort"
	"strings"

	"pricetrack-backend/models"
)

const (
	// DefaultMatchThreshold is used by the explicit product-match endpoint.
	DefaultMatchThreshold = 0.6
	// SuggestionThreshold is the looser cutoff used when enriching freshly
	// parsed draft lines with suggestions.
	SuggestionThreshold = 0.3
	// MaxSuggestions caps how many suggestions a draft line carries.
	MaxSuggestions = 3
)

// ProductSuggestion pairs a catalog product with its similarity to a query.
type ProductSuggestion struct {
	Product    models.Product `json:"product"`
	Similarity float64        `json:"similarity"`
}

// FindSimilarProducts ranks catalog products by textual similarity to an
// OCR line description. The scan is exhaustive over the catalog, which is
// fine into the low thousands of products; beyond that an index would be
// needed.
func FindSimilarProducts(description string, products []models.Product, threshold float64) []ProductSuggestion {
	var suggestions []ProductSuggestion
	for _, product := range products {
		similarity := SimilarityRatio(description, product.Name)
		if similarity >= threshold {
			suggestions = append(suggestions, ProductSuggestion{Product: product, Similarity: similarity})
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Similarity > suggestions[j].Similarity
	})
	return suggestions
}

// SimilarityRatio computes the Ratcliff/Obershelp sequence similarity of
// two strings, case-folded: 2*M/T where M is the total number of matched
// characters across matching blocks and T the combined length. Identical
// strings score 1.0, fully disjoint strings 0.0.
func SimilarityRatio(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

// matchingChars sums matching-block sizes: find the longest common
// substring, then recurse into the pieces left and right of it.
func matchingChars(a, b []rune) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingChars(a[:ai], b[:bi]) + matchingChars(a[ai+size:], b[bi+size:])
}

func longestCommonBlock(a, b []rune) (ai, bi, size int) {
	prev := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			}
		}
		prev = cur
	}
	return ai, bi, size
}
