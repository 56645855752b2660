package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/messaging"
	"sourcing_marketplace/internal/models"
	"sourcing_marketplace/internal/repository"
	"sourcing_marketplace/internal/verification"
)

// TrustState is the read model for a supplier's current verification standing.
type TrustState struct {
	SupplierID      string                    `json:"supplier_id"`
	Status          models.VerificationStatus `json:"status"`
	Score           *decimal.Decimal          `json:"score,omitempty"`
	IsVerified      bool                      `json:"is_verified"`
	LastVerifiedAt  *time.Time                `json:"last_verified_at,omitempty"`
	ExpiresAt       *time.Time                `json:"expires_at,omitempty"`
	Expired         bool                      `json:"expired"`
	RenewalDeadline *time.Time                `json:"renewal_deadline,omitempty"`
}

type SupplierService interface {
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	GetSupplier(ctx context.Context, id string) (*models.Supplier, error)
	GetAllSuppliers(ctx context.Context) ([]*models.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier *models.Supplier) error

	// TriggerVerification enqueues one background verification run and
	// returns an opaque task id immediately; the outcome is observed later
	// through GetTrustState / GetVerificationHistory.
	TriggerVerification(ctx context.Context, supplierID string) (string, error)
	// TriggerBatchVerification enqueues one independent task per supplier.
	// A nil or empty id list means all active suppliers. Malformed ids are
	// rejected synchronously before anything is enqueued.
	TriggerBatchVerification(ctx context.Context, supplierIDs []string) ([]string, error)

	GetTrustState(ctx context.Context, supplierID string) (*TrustState, error)
	GetVerificationHistory(ctx context.Context, supplierID string) ([]*models.VerificationCheck, error)
}

type supplierService struct {
	suppliers  repository.SupplierRepository
	checks     repository.VerificationRepository
	categories repository.CategoryRepository
	ledger     *verification.Ledger
	nats       messaging.NATSClient
	logger     *zap.Logger
}

func NewSupplierService(
	suppliers repository.SupplierRepository,
	checks repository.VerificationRepository,
	categories repository.CategoryRepository,
	ledger *verification.Ledger,
	nats messaging.NATSClient,
	logger *zap.Logger,
) SupplierService {
	return &supplierService{
		suppliers:  suppliers,
		checks:     checks,
		categories: categories,
		ledger:     ledger,
		nats:       nats,
		logger:     logger,
	}
}

// checkCategory rejects references to categories that do not exist; a nil id
// (uncategorized) is always fine.
func (s *supplierService) checkCategory(ctx context.Context, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	category, err := s.categories.GetByID(ctx, *categoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return fmt.Errorf("%w: unknown category %s", ErrInvalidInput, *categoryID)
	}
	return nil
}

func (s *supplierService) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	if supplier.Name == "" {
		return fmt.Errorf("%w: supplier name cannot be empty", ErrInvalidInput)
	}
	if supplier.Country == "" {
		return fmt.Errorf("%w: supplier country cannot be empty", ErrInvalidInput)
	}
	if supplier.City == "" {
		return fmt.Errorf("%w: supplier city cannot be empty", ErrInvalidInput)
	}
	if err := s.checkCategory(ctx, supplier.CategoryID); err != nil {
		return err
	}
	return s.suppliers.Create(ctx, supplier)
}

func (s *supplierService) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: supplier id cannot be empty", ErrInvalidInput)
	}
	supplier, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("supplier %s: %w", id, ErrNotFound)
	}
	return supplier, nil
}

func (s *supplierService) GetAllSuppliers(ctx context.Context) ([]*models.Supplier, error) {
	return s.suppliers.GetAll(ctx)
}

func (s *supplierService) UpdateSupplier(ctx context.Context, supplier *models.Supplier) error {
	if supplier.ID == "" {
		return fmt.Errorf("%w: supplier id cannot be empty", ErrInvalidInput)
	}
	if supplier.Name == "" {
		return fmt.Errorf("%w: supplier name cannot be empty", ErrInvalidInput)
	}
	if err := s.checkCategory(ctx, supplier.CategoryID); err != nil {
		return err
	}
	return s.suppliers.Update(ctx, supplier)
}

func (s *supplierService) TriggerVerification(ctx context.Context, supplierID string) (string, error) {
	if _, err := uuid.Parse(supplierID); err != nil {
		return "", fmt.Errorf("%w: malformed supplier id %q", ErrInvalidInput, supplierID)
	}

	supplier, err := s.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		return "", err
	}
	if supplier == nil {
		return "", fmt.Errorf("supplier %s: %w", supplierID, ErrNotFound)
	}

	taskID := uuid.New().String()
	msg := messaging.RunVerificationMessage{
		TaskID:      taskID,
		SupplierID:  supplierID,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.nats.PublishVerificationRun(ctx, msg); err != nil {
		s.logger.Error("failed to enqueue verification", zap.Error(err), zap.String("supplier_id", supplierID))
		return "", fmt.Errorf("failed to enqueue verification: %w", err)
	}

	s.logger.Info("verification enqueued",
		zap.String("task_id", taskID),
		zap.String("supplier_id", supplierID))
	return taskID, nil
}

func (s *supplierService) TriggerBatchVerification(ctx context.Context, supplierIDs []string) ([]string, error) {
	// Validate the whole batch up front: a malformed id rejects the request
	// before any task is enqueued.
	for _, id := range supplierIDs {
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: malformed supplier id %q", ErrInvalidInput, id)
		}
	}

	ids := supplierIDs
	if len(ids) == 0 {
		var err error
		ids, err = s.suppliers.ListActiveIDs(ctx)
		if err != nil {
			return nil, err
		}
	}

	taskIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		taskID := uuid.New().String()
		msg := messaging.RunVerificationMessage{
			TaskID:      taskID,
			SupplierID:  id,
			RequestedAt: time.Now().UTC(),
		}
		if err := s.nats.PublishVerificationRun(ctx, msg); err != nil {
			// Tasks are independent; report the enqueue failure but keep the
			// already published ones running.
			s.logger.Error("failed to enqueue verification in batch", zap.Error(err), zap.String("supplier_id", id))
			return taskIDs, fmt.Errorf("failed to enqueue verification for supplier %s: %w", id, err)
		}
		taskIDs = append(taskIDs, taskID)
	}

	s.logger.Info("batch verification enqueued", zap.Int("count", len(taskIDs)))
	return taskIDs, nil
}

func (s *supplierService) GetTrustState(ctx context.Context, supplierID string) (*TrustState, error) {
	supplier, err := s.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	return &TrustState{
		SupplierID:      supplier.ID,
		Status:          supplier.VerificationStatus,
		Score:           supplier.VerificationScore,
		IsVerified:      supplier.IsVerified,
		LastVerifiedAt:  supplier.LastVerifiedAt,
		ExpiresAt:       supplier.VerificationExpiresAt,
		Expired:         s.ledger.IsExpired(supplier),
		RenewalDeadline: s.ledger.RenewalDeadline(supplier),
	}, nil
}

func (s *supplierService) GetVerificationHistory(ctx context.Context, supplierID string) ([]*models.VerificationCheck, error) {
	if _, err := s.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}
	return s.checks.ListBySupplier(ctx, supplierID)
}
