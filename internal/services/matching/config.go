// Package matching pairs bank transactions with financial records. It is
// pure computation over in-memory collections: the engine scores a
// transaction against candidate records on amount, date, and counterparty
// name, and proposes a ranked, capped list of suggestions. Persistence and
// the approve/reject lifecycle live in the reconciliation service.
package matching

import "github.com/shopspring/decimal"

// Config holds the matching thresholds and weights. The defaults are a
// reconstruction of the thresholds the agency has been reviewing matches
// with; they are exposed through configuration so they can be tuned without
// a rebuild.
type Config struct {
	// Amount tiers, checked in order against |txAmount| - |recordAmount|.
	ExactAmountTolerance decimal.Decimal // rounding noise, scores 1.0
	NearAmountTolerance  decimal.Decimal // minor fees, scores 0.75
	PercentTolerance     decimal.Decimal // fraction of the larger amount, scores 0.5

	// Relative weights for the amount, date, and text signals. Renormalized
	// over the signals actually present on a given pair.
	AmountWeight float64
	DateWeight   float64
	TextWeight   float64

	// Confidence banding.
	HighConfidence   float64 // >= this is "high"
	MediumConfidence float64 // >= this is "medium"
	MinConfidence    float64 // below this a pair is never surfaced

	// MaxSuggestions caps the proposer output per transaction.
	MaxSuggestions int
}

// DefaultConfig returns the standard thresholds: exact to the cent, near
// within one euro, close within 2% of the larger amount; amount carries half
// the weight, date and name a quarter each; 0.85/0.6 confidence bands with a
// 0.3 floor; five suggestions per transaction.
func DefaultConfig() Config {
	return Config{
		ExactAmountTolerance: decimal.NewFromFloat(0.01),
		NearAmountTolerance:  decimal.NewFromFloat(1.00),
		PercentTolerance:     decimal.NewFromFloat(0.02),
		AmountWeight:         0.5,
		DateWeight:           0.25,
		TextWeight:           0.25,
		HighConfidence:       0.85,
		MediumConfidence:     0.6,
		MinConfidence:        0.3,
		MaxSuggestions:       5,
	}
}
