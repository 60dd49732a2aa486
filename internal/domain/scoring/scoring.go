// Package scoring computes residual risk and risk levels for enterprise risk
// assessments.
package scoring

import (
	"math"
)

// Level is a risk classification.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// Valid reports whether l is one of the four levels.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	}
	return false
}

// Category is a risk assessment factor category.
type Category string

const (
	CategoryCustomer    Category = "Customer"
	CategoryGeography   Category = "Geography"
	CategoryProduct     Category = "Product"
	CategoryChannel     Category = "Channel"
	CategoryTransaction Category = "Transaction"
)

// CategoryWeights are the fixed shares of each category in the overall score.
var CategoryWeights = map[Category]float64{
	CategoryCustomer:    0.30,
	CategoryGeography:   0.20,
	CategoryProduct:     0.25,
	CategoryChannel:     0.10,
	CategoryTransaction: 0.15,
}

// Valid reports whether c is a weighted category.
func (c Category) Valid() bool {
	_, ok := CategoryWeights[c]
	return ok
}

const (
	MinScore = 1
	MaxScore = 5
)

// Residual is max(1, inherent - control*0.5). Inputs are expected in [1,5].
func Residual(inherent, control int) float64 {
	return math.Max(1, float64(inherent)-float64(control)*0.5)
}

// Classify maps a score onto a level: >4 Critical, >3 High, >2 Medium, else Low.
func Classify(score float64) Level {
	switch {
	case score > 4:
		return LevelCritical
	case score > 3:
		return LevelHigh
	case score > 2:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Factor is the scoring view of a risk factor.
type Factor struct {
	Category Category
	Inherent int
	Control  int
}

// Overall averages residuals per category, then takes the weighted mean of the
// category averages. Weights are renormalised over the categories that have at
// least one factor. ok is false when there are no scorable factors.
func Overall(factors []Factor) (score float64, level Level, ok bool) {
	sums := make(map[Category]float64)
	counts := make(map[Category]int)
	for _, f := range factors {
		if !f.Category.Valid() {
			continue
		}
		sums[f.Category] += Residual(f.Inherent, f.Control)
		counts[f.Category]++
	}
	if len(counts) == 0 {
		return 0, "", false
	}

	var weighted, totalWeight float64
	for category, n := range counts {
		w := CategoryWeights[category]
		weighted += w * (sums[category] / float64(n))
		totalWeight += w
	}

	score = math.Round(weighted/totalWeight*100) / 100
	return score, Classify(score), true
}
