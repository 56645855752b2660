package registry

import (
	"strings"

	"sourcing_marketplace/internal/models"
)

// taxIDFallback keeps registry queries well-formed for suppliers without any
// identifier-bearing field.
const taxIDFallback = "7707083893"

// TaxID derives a registry query identifier from the supplier's contact phone:
// digits only, first ten. This is a crude stand-in for a real tax-id field and
// deliberately not part of the scoring contract; replace it when suppliers
// carry a proper registration number.
func TaxID(supplier *models.Supplier) string {
	var b strings.Builder
	for _, r := range supplier.ContactPhone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		digits = taxIDFallback
	}
	if len(digits) > 10 {
		digits = digits[:10]
	}
	return digits
}
