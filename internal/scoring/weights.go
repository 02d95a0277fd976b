// Package scoring computes the AI Discovery Score, its qualitative tier and
// the prioritized recommendation list. Everything here is pure: no I/O, no
// logging, no shared mutable state.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Weights configures the maximum points each score component contributes.
type Weights struct {
	AIConfidence float64 `yaml:"ai_confidence" mapstructure:"ai_confidence"`
	Completeness float64 `yaml:"completeness" mapstructure:"completeness"`
	Sentiment    float64 `yaml:"sentiment" mapstructure:"sentiment"`
	Visual       float64 `yaml:"visual" mapstructure:"visual"`
	Competitive  float64 `yaml:"competitive" mapstructure:"competitive"`

	// CompetitiveDefault is awarded when no competitive analysis was run at
	// all. An analysis that scored 0 still yields 0.
	CompetitiveDefault float64 `yaml:"competitive_default" mapstructure:"competitive_default"`
}

// DefaultWeights returns the production weighting: 25/20/20/15/20 with half
// competitive credit when no competitor data exists.
func DefaultWeights() Weights {
	return Weights{
		AIConfidence:       25,
		Completeness:       20,
		Sentiment:          20,
		Visual:             15,
		Competitive:        20,
		CompetitiveDefault: 10,
	}
}

// Sum returns the total of the five component weights.
func (w Weights) Sum() float64 {
	return w.AIConfidence + w.Completeness + w.Sentiment + w.Visual + w.Competitive
}

// Validate checks the weights and reports every problem found.
func (w Weights) Validate() error {
	var errs []string

	named := []struct {
		name string
		v    float64
	}{
		{"ai_confidence", w.AIConfidence},
		{"completeness", w.Completeness},
		{"sentiment", w.Sentiment},
		{"visual", w.Visual},
		{"competitive", w.Competitive},
		{"competitive_default", w.CompetitiveDefault},
	}
	for _, n := range named {
		if n.v < 0 || math.IsNaN(n.v) {
			errs = append(errs, fmt.Sprintf("%s must be non-negative, got %.2f", n.name, n.v))
		}
	}

	if sum := w.Sum(); math.Abs(sum-100) > 0.01 {
		errs = append(errs, fmt.Sprintf("component weights must sum to 100, got %.2f", sum))
	}
	if w.CompetitiveDefault > w.Competitive {
		errs = append(errs, fmt.Sprintf("competitive_default (%.2f) exceeds competitive weight (%.2f)", w.CompetitiveDefault, w.Competitive))
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: weights validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Completeness sub-weights. They add up to the default completeness weight
// of 20 and are scaled when the configured weight differs.
const (
	descriptionPoints = 4.0
	websitePoints     = 3.0
	phonePoints       = 2.0
	claimedPoints     = 4.0
	reviewsCapPoints  = 4.0
	reviewsPerPoint   = 10.0
	ratingPoints      = 3.0
	maxRating         = 5.0
	completenessBase  = 20.0
)
