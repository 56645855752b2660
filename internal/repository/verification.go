package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/models"
)

type VerificationRepository interface {
	// CreateInProgressTx inserts the check row inside the caller's locking
	// transaction so a crash mid-run still leaves visible evidence of the
	// attempt.
	CreateInProgressTx(ctx context.Context, tx pgx.Tx, supplierID, country string) (*models.VerificationCheck, error)
	MarkCompleted(ctx context.Context, check *models.VerificationCheck) error
	MarkFailed(ctx context.Context, checkID, errorMessage string) error
	GetByID(ctx context.Context, id string) (*models.VerificationCheck, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*models.VerificationCheck, error)
}

type verificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewVerificationRepository(db *pgxpool.Pool, logger *zap.Logger) VerificationRepository {
	return &verificationRepository{db: db, logger: logger}
}

const checkColumns = `id, supplier_id, country, status, source_scores, overall_score, risk_level,
	is_verified, checked_sources, error_message, started_at, completed_at, created_at, updated_at`

func scanCheck(row pgx.Row) (*models.VerificationCheck, error) {
	var c models.VerificationCheck
	var overall decimal.NullDecimal
	var riskLevel *string
	var sourceScores, checkedSources []byte
	err := row.Scan(
		&c.ID, &c.SupplierID, &c.Country, &c.Status, &sourceScores, &overall, &riskLevel,
		&c.IsVerified, &checkedSources, &c.ErrorMessage, &c.StartedAt, &c.CompletedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if overall.Valid {
		c.OverallScore = &overall.Decimal
	}
	if riskLevel != nil {
		c.RiskLevel = models.RiskLevel(*riskLevel)
	}
	if len(sourceScores) > 0 {
		if err := json.Unmarshal(sourceScores, &c.SourceScores); err != nil {
			return nil, fmt.Errorf("failed to decode source scores: %w", err)
		}
	}
	if len(checkedSources) > 0 {
		if err := json.Unmarshal(checkedSources, &c.CheckedSources); err != nil {
			return nil, fmt.Errorf("failed to decode checked sources: %w", err)
		}
	}
	return &c, nil
}

func (r *verificationRepository) CreateInProgressTx(ctx context.Context, tx pgx.Tx, supplierID, country string) (*models.VerificationCheck, error) {
	check := &models.VerificationCheck{
		ID:         uuid.New().String(),
		SupplierID: supplierID,
		Country:    country,
		Status:     models.VerificationStatusInProgress,
	}

	query := `
		INSERT INTO verification_checks (id, supplier_id, country, status)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at, created_at, updated_at
	`
	err := tx.QueryRow(ctx, query, check.ID, check.SupplierID, check.Country, check.Status).
		Scan(&check.StartedAt, &check.CreatedAt, &check.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create verification check", zap.Error(err), zap.String("supplier_id", supplierID))
		return nil, fmt.Errorf("failed to create verification check: %w", err)
	}
	return check, nil
}

func (r *verificationRepository) MarkCompleted(ctx context.Context, check *models.VerificationCheck) error {
	sourceScores, err := json.Marshal(check.SourceScores)
	if err != nil {
		return fmt.Errorf("failed to encode source scores: %w", err)
	}
	checkedSources, err := json.Marshal(check.CheckedSources)
	if err != nil {
		return fmt.Errorf("failed to encode checked sources: %w", err)
	}

	var overall decimal.NullDecimal
	if check.OverallScore != nil {
		overall = decimal.NewNullDecimal(*check.OverallScore)
	}
	var riskLevel *string
	if check.RiskLevel != "" {
		rl := string(check.RiskLevel)
		riskLevel = &rl
	}

	query := `
		UPDATE verification_checks
		SET status = $2, source_scores = $3, overall_score = $4, risk_level = $5,
			is_verified = $6, checked_sources = $7, completed_at = $8, updated_at = now()
		WHERE id = $1
	`
	_, err = r.db.Exec(ctx, query, check.ID, check.Status, sourceScores, overall,
		riskLevel, check.IsVerified, checkedSources, check.CompletedAt)
	if err != nil {
		r.logger.Error("failed to complete verification check", zap.Error(err), zap.String("id", check.ID))
		return fmt.Errorf("failed to complete verification check: %w", err)
	}
	return nil
}

func (r *verificationRepository) MarkFailed(ctx context.Context, checkID, errorMessage string) error {
	query := `
		UPDATE verification_checks
		SET status = $2, error_message = $3, completed_at = now(), updated_at = now()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, checkID, models.VerificationStatusFailed, errorMessage)
	if err != nil {
		r.logger.Error("failed to mark verification check failed", zap.Error(err), zap.String("id", checkID))
		return fmt.Errorf("failed to mark verification check failed: %w", err)
	}
	return nil
}

func (r *verificationRepository) GetByID(ctx context.Context, id string) (*models.VerificationCheck, error) {
	query := `SELECT ` + checkColumns + ` FROM verification_checks WHERE id = $1`

	c, err := scanCheck(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get verification check", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get verification check: %w", err)
	}
	return c, nil
}

func (r *verificationRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*models.VerificationCheck, error) {
	query := `SELECT ` + checkColumns + ` FROM verification_checks
		WHERE supplier_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, supplierID)
	if err != nil {
		r.logger.Error("failed to list verification checks", zap.Error(err), zap.String("supplier_id", supplierID))
		return nil, fmt.Errorf("failed to list verification checks: %w", err)
	}
	defer rows.Close()

	var checks []*models.VerificationCheck
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			r.logger.Error("failed to scan verification check", zap.Error(err))
			continue
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
