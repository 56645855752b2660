package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type VerificationStatus string

const (
	VerificationStatusNotStarted VerificationStatus = "not_started"
	VerificationStatusInProgress VerificationStatus = "in_progress"
	VerificationStatusCompleted  VerificationStatus = "completed"
	VerificationStatusFailed     VerificationStatus = "failed"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Category is a hierarchical product/service taxonomy node. A nil ParentID
// marks a root category; suppliers and orders may attach to any level.
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	ParentID    *string   `json:"parent_id,omitempty" db:"parent_id"`
	Description string    `json:"description,omitempty" db:"description"`
	Icon        string    `json:"icon,omitempty" db:"icon"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Supplier is the verification subject. Trust fields (VerificationStatus,
// VerificationScore, IsVerified, LastVerifiedAt, VerificationExpiresAt) are
// written only through the verification ledger, never by handlers directly.
type Supplier struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Country      string `json:"country" db:"country"`
	City         string `json:"city" db:"city"`
	Description  string `json:"description,omitempty" db:"description"`
	ContactEmail string `json:"contact_email,omitempty" db:"contact_email"`
	ContactPhone string `json:"contact_phone,omitempty" db:"contact_phone"`
	Website      string `json:"website,omitempty" db:"website"`

	CategoryID *string `json:"category_id,omitempty" db:"category_id"`

	MinOrderQty      int    `json:"min_order_qty" db:"min_order_qty"`
	MinOrderCurrency string `json:"min_order_currency" db:"min_order_currency"`

	VerificationStatus    VerificationStatus `json:"verification_status" db:"verification_status"`
	VerificationScore     *decimal.Decimal   `json:"verification_score,omitempty" db:"verification_score"`
	IsVerified            bool               `json:"is_verified" db:"is_verified"`
	LastVerifiedAt        *time.Time         `json:"last_verified_at,omitempty" db:"last_verified_at"`
	VerificationExpiresAt *time.Time         `json:"verification_expires_at,omitempty" db:"verification_expires_at"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	IsPremium bool      `json:"is_premium" db:"is_premium"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// VerificationCheck is one verification attempt for one supplier. Terminal
// checks (completed or failed) are immutable; the only follow-up side effect
// is the one-time ledger apply on the supplier.
type VerificationCheck struct {
	ID         string `json:"id" db:"id"`
	SupplierID string `json:"supplier_id" db:"supplier_id"`
	// Country is snapshotted at check creation, not read live from the supplier.
	Country string             `json:"country" db:"country"`
	Status  VerificationStatus `json:"status" db:"status"`

	SourceScores map[string]decimal.Decimal `json:"source_scores,omitempty" db:"-"`
	OverallScore *decimal.Decimal           `json:"overall_score,omitempty" db:"overall_score"`
	RiskLevel    RiskLevel                  `json:"risk_level,omitempty" db:"risk_level"`
	IsVerified   bool                       `json:"is_verified" db:"is_verified"`

	CheckedSources map[string]any `json:"checked_sources,omitempty" db:"-"`
	ErrorMessage   string         `json:"error_message,omitempty" db:"error_message"`

	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type SourceStatus string

const (
	SourceStatusOK      SourceStatus = "ok"
	SourceStatusWarning SourceStatus = "warning"
	SourceStatusError   SourceStatus = "error"
)

// SourceResult is the outcome of a single registry lookup. It is not persisted
// on its own; the task runner embeds it into the check's checked_sources blob.
type SourceResult struct {
	Source    string          `json:"source"`
	Status    SourceStatus    `json:"status"`
	Score     decimal.Decimal `json:"score"`
	Payload   map[string]any  `json:"payload,omitempty"`
	Synthetic bool            `json:"synthetic"`
}

type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a buyer's request for quotes.
type Order struct {
	ID          string           `json:"id" db:"id"`
	Title       string           `json:"title" db:"title"`
	Description string           `json:"description" db:"description"`
	BuyerID     string           `json:"buyer_id" db:"buyer_id"`
	CategoryID  *string          `json:"category_id,omitempty" db:"category_id"`
	BudgetMin   *decimal.Decimal `json:"budget_min,omitempty" db:"budget_min"`
	BudgetMax   *decimal.Decimal `json:"budget_max,omitempty" db:"budget_max"`
	Region      string           `json:"region" db:"region"`
	Deadline    time.Time        `json:"deadline" db:"deadline"`
	Status      OrderStatus      `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// Offer is a supplier's quote against an order. One offer per supplier per
// order, enforced by a unique constraint.
type Offer struct {
	ID           string          `json:"id" db:"id"`
	OrderID      string          `json:"order_id" db:"order_id"`
	SupplierID   string          `json:"supplier_id" db:"supplier_id"`
	Price        decimal.Decimal `json:"price" db:"price"`
	DeliveryDays int             `json:"delivery_days" db:"delivery_days"`
	Comment      string          `json:"comment,omitempty" db:"comment"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// User logs in by email; there is no username.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
