package registry

import (
	"hash/fnv"
	"math/rand"

	"github.com/shopspring/decimal"

	"sourcing_marketplace/internal/models"
)

// syntheticScore is deterministic per (supplier id, source): a PRNG seeded from
// an fnv64a of the pair, scaled into [0.5, 1.0]. Repeated synthetic runs for
// the same supplier therefore produce identical scores on any platform.
func syntheticScore(supplierID, source string) decimal.Decimal {
	h := fnv.New64a()
	h.Write([]byte(supplierID))
	h.Write([]byte("-"))
	h.Write([]byte(source))

	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return decimal.NewFromFloat(0.5 + rng.Float64()*0.5).Round(2)
}

func syntheticResult(source string, supplier *models.Supplier) models.SourceResult {
	score := syntheticScore(supplier.ID, source)
	return models.SourceResult{
		Source: source,
		Status: statusFromScore(score),
		Score:  score,
		Payload: map[string]any{
			"mock":     true,
			"country":  supplier.Country,
			"supplier": supplier.Name,
		},
		Synthetic: true,
	}
}
