package scoring

import (
	"github.com/shopspring/decimal"

	"sourcing_marketplace/internal/models"
)

// Scoring thresholds are fixed so scores stay comparable across suppliers and
// time. Changing them is a policy decision, not a per-call parameter.
var (
	riskLowThreshold    = decimal.New(85, -2) // 0.85
	riskMediumThreshold = decimal.New(65, -2) // 0.65
	verifiedThreshold   = decimal.New(75, -2) // 0.75
)

type Outcome struct {
	OverallScore *decimal.Decimal
	RiskLevel    models.RiskLevel
	IsVerified   bool
}

// Aggregate folds the per-source scores into an overall score, risk tier and
// verified flag. The overall score is the arithmetic mean of the scores that
// are present, rounded half-up to two decimal places; classification happens
// on the rounded value. With no scores at all the outcome is empty and
// unverified.
func Aggregate(scores map[string]decimal.Decimal) Outcome {
	if len(scores) == 0 {
		return Outcome{IsVerified: false}
	}

	sum := decimal.Zero
	for _, s := range scores {
		sum = sum.Add(s)
	}
	overall := sum.Div(decimal.NewFromInt(int64(len(scores)))).Round(2)

	return Outcome{
		OverallScore: &overall,
		RiskLevel:    classify(overall),
		IsVerified:   overall.GreaterThanOrEqual(verifiedThreshold),
	}
}

func classify(score decimal.Decimal) models.RiskLevel {
	switch {
	case score.GreaterThanOrEqual(riskLowThreshold):
		return models.RiskLevelLow
	case score.GreaterThanOrEqual(riskMediumThreshold):
		return models.RiskLevelMedium
	default:
		return models.RiskLevelHigh
	}
}
