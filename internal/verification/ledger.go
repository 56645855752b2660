package verification

import (
	"fmt"
	"time"

	"sourcing_marketplace/internal/models"
)

const (
	// validityPeriod is how long a successful verification stays valid.
	validityPeriod = 90 * 24 * time.Hour
	// renewalWindow is how long before expiry a supplier may renew.
	renewalWindow = 7 * 24 * time.Hour
)

// Ledger applies a completed check's outcome to the supplier's trust state and
// answers expiry questions. It is the only place supplier trust fields change.
type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Apply copies the check's outcome onto the supplier. Only completed checks
// may be applied; the caller persists the supplier under the same row lock
// that covered the run. Applying the same check twice is a no-op beyond the
// first field overwrite.
//
// A supplier that fails re-verification keeps its previous expiry date: the
// old result stays visible as a grace period until a new successful run
// overwrites it.
func (l *Ledger) Apply(supplier *models.Supplier, check *models.VerificationCheck) error {
	if check.Status != models.VerificationStatusCompleted {
		return fmt.Errorf("cannot apply check %s with status %s", check.ID, check.Status)
	}

	supplier.VerificationStatus = check.Status
	supplier.VerificationScore = check.OverallScore
	supplier.IsVerified = check.IsVerified

	verifiedAt := l.now()
	if check.CompletedAt != nil {
		verifiedAt = *check.CompletedAt
	}
	supplier.LastVerifiedAt = &verifiedAt

	if supplier.IsVerified {
		expires := verifiedAt.Add(validityPeriod)
		supplier.VerificationExpiresAt = &expires
	}
	return nil
}

// IsExpired reports whether the supplier's verification has lapsed. A supplier
// that was never verified counts as expired.
func (l *Ledger) IsExpired(supplier *models.Supplier) bool {
	if supplier.VerificationExpiresAt == nil {
		return true
	}
	return l.now().After(*supplier.VerificationExpiresAt)
}

// RenewalDeadline is the date from which the supplier should re-verify, or nil
// when no verification is in effect.
func (l *Ledger) RenewalDeadline(supplier *models.Supplier) *time.Time {
	if supplier.VerificationExpiresAt == nil {
		return nil
	}
	deadline := supplier.VerificationExpiresAt.Add(-renewalWindow)
	return &deadline
}
