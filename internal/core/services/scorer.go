package services

import "github.com/tidewater-labs/harvest-core/internal/core/domain"

// Default point weights for the quality scorer. Fields are weighted
// independently; no field interacts with another, which keeps the score
// monotonic: adding any valid field never lowers the total.
const (
	pointsTitle      = 15
	pointsBody       = 25
	pointsLongBody   = 10
	pointsCategory   = 15
	pointsURL        = 15
	pointsPlatform   = 5
	pointsProvider   = 10
	pointsPriceOrRat = 5

	// longBodyLength is the description length earning the long-body bonus
	longBodyLength = 500
)

// DefaultQualityThreshold gates automatic acceptance. It is a policy
// parameter consumed by the reconciler, not by the scorer itself.
const DefaultQualityThreshold = 70

// Score computes a completeness/validity score in [0,100] for a
// candidate from its populated fields. Deterministic and additive.
func Score(c *domain.Candidate) int {
	score := 0

	if c.Title != "" {
		score += pointsTitle
	}
	if len(c.Body) >= domain.MinBodyLength {
		score += pointsBody
	}
	if len(c.Body) >= longBodyLength {
		score += pointsLongBody
	}
	if c.Category != "" {
		score += pointsCategory
	}
	if c.URL != "" {
		score += pointsURL
	}
	if c.Platform != "" {
		score += pointsPlatform
	}
	if c.Provider != "" {
		score += pointsProvider
	}
	if c.Metadata["price"] != "" || c.Metadata["rating"] != "" {
		score += pointsPriceOrRat
	}

	if score > 100 {
		score = 100
	}
	return score
}
