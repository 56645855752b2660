package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/models"
)

type SupplierRepository interface {
	Create(ctx context.Context, supplier *models.Supplier) error
	GetByID(ctx context.Context, id string) (*models.Supplier, error)
	GetAll(ctx context.Context) ([]*models.Supplier, error)
	Update(ctx context.Context, supplier *models.Supplier) error
	ListActiveIDs(ctx context.Context) ([]string, error)

	// WithLock runs fn inside a transaction holding an exclusive row lock on
	// the supplier. All trust-state mutation during a verification run happens
	// under this lock so concurrent runs for one supplier serialize.
	WithLock(ctx context.Context, id string, fn func(ctx context.Context, tx pgx.Tx, supplier *models.Supplier) error) error

	SetVerificationStatusTx(ctx context.Context, tx pgx.Tx, id string, status models.VerificationStatus, verified bool) error
	ApplyVerificationTx(ctx context.Context, tx pgx.Tx, supplier *models.Supplier) error
}

type supplierRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSupplierRepository(db *pgxpool.Pool, logger *zap.Logger) SupplierRepository {
	return &supplierRepository{db: db, logger: logger}
}

const supplierColumns = `id, name, country, city, description, contact_email, contact_phone, website,
	category_id, min_order_qty, min_order_currency,
	verification_status, verification_score, is_verified, last_verified_at, verification_expires_at,
	is_active, is_premium, created_at, updated_at`

func scanSupplier(row pgx.Row) (*models.Supplier, error) {
	var s models.Supplier
	var score decimal.NullDecimal
	err := row.Scan(
		&s.ID, &s.Name, &s.Country, &s.City, &s.Description, &s.ContactEmail, &s.ContactPhone, &s.Website,
		&s.CategoryID, &s.MinOrderQty, &s.MinOrderCurrency,
		&s.VerificationStatus, &score, &s.IsVerified, &s.LastVerifiedAt, &s.VerificationExpiresAt,
		&s.IsActive, &s.IsPremium, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		s.VerificationScore = &score.Decimal
	}
	return &s, nil
}

func (r *supplierRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	if supplier.ID == "" {
		supplier.ID = uuid.New().String()
	}
	if supplier.MinOrderQty < 1 {
		supplier.MinOrderQty = 1
	}
	if supplier.MinOrderCurrency == "" {
		supplier.MinOrderCurrency = "USD"
	}
	supplier.VerificationStatus = models.VerificationStatusNotStarted
	supplier.IsActive = true

	query := `
		INSERT INTO suppliers (id, name, country, city, description, contact_email, contact_phone, website,
			category_id, min_order_qty, min_order_currency, verification_status, is_active, is_premium)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		supplier.ID, supplier.Name, supplier.Country, supplier.City, supplier.Description,
		supplier.ContactEmail, supplier.ContactPhone, supplier.Website,
		supplier.CategoryID, supplier.MinOrderQty, supplier.MinOrderCurrency,
		supplier.VerificationStatus, supplier.IsActive, supplier.IsPremium,
	).Scan(&supplier.CreatedAt, &supplier.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create supplier", zap.Error(err))
		return fmt.Errorf("failed to create supplier: %w", err)
	}
	return nil
}

func (r *supplierRepository) GetByID(ctx context.Context, id string) (*models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`

	s, err := scanSupplier(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get supplier", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return s, nil
}

func (r *supplierRepository) GetAll(ctx context.Context) ([]*models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers
		ORDER BY is_premium DESC, verification_score DESC NULLS LAST, created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list suppliers", zap.Error(err))
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []*models.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			r.logger.Error("failed to scan supplier", zap.Error(err))
			continue
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *supplierRepository) Update(ctx context.Context, supplier *models.Supplier) error {
	query := `
		UPDATE suppliers
		SET name = $2, country = $3, city = $4, description = $5, contact_email = $6,
			contact_phone = $7, website = $8, category_id = $9, min_order_qty = $10,
			min_order_currency = $11, is_active = $12, is_premium = $13, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		supplier.ID, supplier.Name, supplier.Country, supplier.City, supplier.Description,
		supplier.ContactEmail, supplier.ContactPhone, supplier.Website, supplier.CategoryID,
		supplier.MinOrderQty, supplier.MinOrderCurrency, supplier.IsActive, supplier.IsPremium,
	).Scan(&supplier.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("supplier not found: %s", supplier.ID)
		}
		r.logger.Error("failed to update supplier", zap.Error(err), zap.String("id", supplier.ID))
		return fmt.Errorf("failed to update supplier: %w", err)
	}
	return nil
}

func (r *supplierRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM suppliers WHERE is_active = TRUE ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active suppliers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan supplier id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *supplierRepository) WithLock(ctx context.Context, id string, fn func(ctx context.Context, tx pgx.Tx, supplier *models.Supplier) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1 FOR UPDATE`
	s, err := scanSupplier(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("supplier not found: %s", id)
		}
		return fmt.Errorf("failed to lock supplier: %w", err)
	}

	if err := fn(ctx, tx, s); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *supplierRepository) SetVerificationStatusTx(ctx context.Context, tx pgx.Tx, id string, status models.VerificationStatus, verified bool) error {
	_, err := tx.Exec(ctx,
		`UPDATE suppliers SET verification_status = $2, is_verified = $3, updated_at = now() WHERE id = $1`,
		id, status, verified)
	if err != nil {
		return fmt.Errorf("failed to set verification status: %w", err)
	}
	return nil
}

// ApplyVerificationTx persists the trust fields the ledger set on the supplier.
// It overwrites fields only, so re-applying the same outcome is idempotent.
func (r *supplierRepository) ApplyVerificationTx(ctx context.Context, tx pgx.Tx, supplier *models.Supplier) error {
	var score decimal.NullDecimal
	if supplier.VerificationScore != nil {
		score = decimal.NewNullDecimal(*supplier.VerificationScore)
	}
	_, err := tx.Exec(ctx, `
		UPDATE suppliers
		SET verification_status = $2, verification_score = $3, is_verified = $4,
			last_verified_at = $5, verification_expires_at = $6, updated_at = now()
		WHERE id = $1`,
		supplier.ID, supplier.VerificationStatus, score, supplier.IsVerified,
		supplier.LastVerifiedAt, supplier.VerificationExpiresAt)
	if err != nil {
		r.logger.Error("failed to apply verification result", zap.Error(err), zap.String("id", supplier.ID))
		return fmt.Errorf("failed to apply verification result: %w", err)
	}
	return nil
}
