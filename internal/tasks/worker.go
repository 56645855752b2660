package tasks

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/messaging"
	"sourcing_marketplace/internal/models"
	"sourcing_marketplace/internal/repository"
	"sourcing_marketplace/internal/verification"
)

// RunExecutor performs the registry checks and aggregation for one supplier.
type RunExecutor interface {
	Execute(ctx context.Context, supplier *models.Supplier) *verification.RunOutcome
}

// Worker consumes verification run messages and executes them with retry.
// Execution is at-least-once: the queue may redeliver, and every attempt
// leaves its own check row, so history shows each try.
type Worker struct {
	suppliers repository.SupplierRepository
	checks    repository.VerificationRepository
	runner    RunExecutor
	ledger    *verification.Ledger
	nats      messaging.NATSClient
	policy    RetryPolicy
	logger    *zap.Logger

	sleep func(time.Duration)
	now   func() time.Time
}

func NewWorker(
	suppliers repository.SupplierRepository,
	checks repository.VerificationRepository,
	runner RunExecutor,
	ledger *verification.Ledger,
	nats messaging.NATSClient,
	policy RetryPolicy,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		suppliers: suppliers,
		checks:    checks,
		runner:    runner,
		ledger:    ledger,
		nats:      nats,
		policy:    policy,
		logger:    logger,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Start joins the worker queue group and processes run messages until the
// subscription drops.
func (w *Worker) Start(ctx context.Context, queue string) error {
	return w.nats.SubscribeVerificationRuns(ctx, queue, func(msg messaging.RunVerificationMessage) {
		w.Handle(ctx, msg)
	})
}

// Handle runs one verification task to a terminal outcome, retrying with
// exponential backoff up to the policy's attempt budget. After the budget is
// exhausted the supplier stays failed/unverified until re-triggered manually.
func (w *Worker) Handle(ctx context.Context, msg messaging.RunVerificationMessage) {
	var lastErr error
	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		checkID, err := w.runOnce(ctx, msg.SupplierID)
		if err == nil {
			w.logger.Info("supplier verified",
				zap.String("task_id", msg.TaskID),
				zap.String("supplier_id", msg.SupplierID),
				zap.Int("attempt", attempt))
			w.publishCompleted(ctx, msg, checkID, models.VerificationStatusCompleted, nil)
			return
		}

		lastErr = err
		w.logger.Error("verification attempt failed",
			zap.String("task_id", msg.TaskID),
			zap.String("supplier_id", msg.SupplierID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < w.policy.MaxAttempts {
			w.sleep(w.policy.Delay(attempt))
		}
	}

	w.logger.Error("verification abandoned after retries",
		zap.String("task_id", msg.TaskID),
		zap.String("supplier_id", msg.SupplierID),
		zap.Int("attempts", w.policy.MaxAttempts),
		zap.Error(lastErr))
	w.publishCompleted(ctx, msg, "", models.VerificationStatusFailed, lastErr)
}

// runOnce is a single verification attempt: mark the supplier in progress and
// create the check row before any registry I/O, execute the run, then persist
// the outcome and apply it to the supplier under the row lock. The lock is
// released during registry I/O, so two concurrent runs for the same supplier
// each apply atomically and the last apply wins.
func (w *Worker) runOnce(ctx context.Context, supplierID string) (string, error) {
	var supplier *models.Supplier
	var check *models.VerificationCheck

	err := w.suppliers.WithLock(ctx, supplierID, func(ctx context.Context, tx pgx.Tx, s *models.Supplier) error {
		supplier = s
		if err := w.suppliers.SetVerificationStatusTx(ctx, tx, s.ID, models.VerificationStatusInProgress, s.IsVerified); err != nil {
			return err
		}
		c, err := w.checks.CreateInProgressTx(ctx, tx, s.ID, s.Country)
		if err != nil {
			return err
		}
		check = c
		return nil
	})
	if err != nil {
		return "", err
	}

	// Registry calls happen outside the lock; each source tolerates its own
	// failures, so Execute cannot fail here.
	outcome := w.runner.Execute(ctx, supplier)

	completedAt := w.now().UTC()
	check.Status = models.VerificationStatusCompleted
	check.CompletedAt = &completedAt
	check.SourceScores = outcome.SourceScores
	check.OverallScore = outcome.Aggregate.OverallScore
	check.RiskLevel = outcome.Aggregate.RiskLevel
	check.IsVerified = outcome.Aggregate.IsVerified
	check.CheckedSources = make(map[string]any, len(outcome.SourceResults))
	for name, res := range outcome.SourceResults {
		check.CheckedSources[name] = res
	}

	if err := w.checks.MarkCompleted(ctx, check); err != nil {
		w.failCheck(ctx, check.ID, supplierID, err)
		return check.ID, err
	}

	err = w.suppliers.WithLock(ctx, supplierID, func(ctx context.Context, tx pgx.Tx, s *models.Supplier) error {
		if err := w.ledger.Apply(s, check); err != nil {
			return err
		}
		return w.suppliers.ApplyVerificationTx(ctx, tx, s)
	})
	if err != nil {
		w.failCheck(ctx, check.ID, supplierID, err)
		return check.ID, err
	}
	return check.ID, nil
}

// failCheck records the failure on the check and the supplier. A failed run
// never erases a previously applied completed result beyond the status flags.
func (w *Worker) failCheck(ctx context.Context, checkID, supplierID string, cause error) {
	if err := w.checks.MarkFailed(ctx, checkID, cause.Error()); err != nil {
		w.logger.Error("failed to record check failure", zap.Error(err), zap.String("check_id", checkID))
	}
	err := w.suppliers.WithLock(ctx, supplierID, func(ctx context.Context, tx pgx.Tx, s *models.Supplier) error {
		return w.suppliers.SetVerificationStatusTx(ctx, tx, s.ID, models.VerificationStatusFailed, false)
	})
	if err != nil {
		w.logger.Error("failed to record supplier failure", zap.Error(err), zap.String("supplier_id", supplierID))
	}
}

func (w *Worker) publishCompleted(ctx context.Context, msg messaging.RunVerificationMessage, checkID string, status models.VerificationStatus, cause error) {
	completed := messaging.VerificationCompletedMessage{
		TaskID:     msg.TaskID,
		CheckID:    checkID,
		SupplierID: msg.SupplierID,
		Status:     string(status),
	}
	if cause != nil {
		completed.Error = cause.Error()
	}
	if err := w.nats.PublishVerificationCompleted(ctx, completed); err != nil {
		w.logger.Error("failed to publish completion event", zap.Error(err), zap.String("supplier_id", msg.SupplierID))
	}
}
