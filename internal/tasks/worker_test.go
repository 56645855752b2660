package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"sourcing_marketplace/internal/messaging"
	"sourcing_marketplace/internal/models"
	"sourcing_marketplace/internal/scoring"
	"sourcing_marketplace/internal/verification"
)

type mockSupplierRepo struct {
	supplier *models.Supplier

	withLockFunc  func(ctx context.Context, id string, fn func(context.Context, pgx.Tx, *models.Supplier) error) error
	setStatusFunc func(ctx context.Context, tx pgx.Tx, id string, status models.VerificationStatus, verified bool) error
	applyFunc     func(ctx context.Context, tx pgx.Tx, supplier *models.Supplier) error
}

func (m *mockSupplierRepo) Create(_ context.Context, _ *models.Supplier) error { return nil }
func (m *mockSupplierRepo) GetByID(_ context.Context, _ string) (*models.Supplier, error) {
	return m.supplier, nil
}
func (m *mockSupplierRepo) GetAll(_ context.Context) ([]*models.Supplier, error) { return nil, nil }
func (m *mockSupplierRepo) Update(_ context.Context, _ *models.Supplier) error   { return nil }
func (m *mockSupplierRepo) ListActiveIDs(_ context.Context) ([]string, error)    { return nil, nil }

func (m *mockSupplierRepo) WithLock(ctx context.Context, id string, fn func(context.Context, pgx.Tx, *models.Supplier) error) error {
	if m.withLockFunc != nil {
		return m.withLockFunc(ctx, id, fn)
	}
	return fn(ctx, nil, m.supplier)
}

func (m *mockSupplierRepo) SetVerificationStatusTx(ctx context.Context, tx pgx.Tx, id string, status models.VerificationStatus, verified bool) error {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, tx, id, status, verified)
	}
	return nil
}

func (m *mockSupplierRepo) ApplyVerificationTx(ctx context.Context, tx pgx.Tx, supplier *models.Supplier) error {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, tx, supplier)
	}
	return nil
}

type mockVerificationRepo struct {
	createFunc    func(ctx context.Context, tx pgx.Tx, supplierID, country string) (*models.VerificationCheck, error)
	completedFunc func(ctx context.Context, check *models.VerificationCheck) error
	failedFunc    func(ctx context.Context, checkID, errorMessage string) error
}

func (m *mockVerificationRepo) CreateInProgressTx(ctx context.Context, tx pgx.Tx, supplierID, country string) (*models.VerificationCheck, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, tx, supplierID, country)
	}
	return &models.VerificationCheck{ID: "check-1", SupplierID: supplierID, Country: country, Status: models.VerificationStatusInProgress}, nil
}

func (m *mockVerificationRepo) MarkCompleted(ctx context.Context, check *models.VerificationCheck) error {
	if m.completedFunc != nil {
		return m.completedFunc(ctx, check)
	}
	return nil
}

func (m *mockVerificationRepo) MarkFailed(ctx context.Context, checkID, errorMessage string) error {
	if m.failedFunc != nil {
		return m.failedFunc(ctx, checkID, errorMessage)
	}
	return nil
}

func (m *mockVerificationRepo) GetByID(_ context.Context, _ string) (*models.VerificationCheck, error) {
	return nil, nil
}
func (m *mockVerificationRepo) ListBySupplier(_ context.Context, _ string) ([]*models.VerificationCheck, error) {
	return nil, nil
}

type mockNATS struct {
	completed []messaging.VerificationCompletedMessage
}

func (m *mockNATS) PublishVerificationRun(_ context.Context, _ messaging.RunVerificationMessage) error {
	return nil
}
func (m *mockNATS) SubscribeVerificationRuns(_ context.Context, _ string, _ func(messaging.RunVerificationMessage)) error {
	return nil
}
func (m *mockNATS) PublishVerificationCompleted(_ context.Context, msg messaging.VerificationCompletedMessage) error {
	m.completed = append(m.completed, msg)
	return nil
}
func (m *mockNATS) SubscribeVerificationCompleted(_ context.Context, _ func(messaging.VerificationCompletedMessage)) error {
	return nil
}
func (m *mockNATS) Close() {}

type mockExecutor struct {
	executeFunc func(ctx context.Context, supplier *models.Supplier) *verification.RunOutcome
}

func (m *mockExecutor) Execute(ctx context.Context, supplier *models.Supplier) *verification.RunOutcome {
	return m.executeFunc(ctx, supplier)
}

func verifiedOutcome(score string) *verification.RunOutcome {
	overall := decimal.RequireFromString(score)
	return &verification.RunOutcome{
		SourceResults: map[string]models.SourceResult{
			"fssp": {Source: "fssp", Status: models.SourceStatusOK, Score: overall},
		},
		SourceScores: map[string]decimal.Decimal{"fssp": overall},
		Aggregate: scoring.Outcome{
			OverallScore: &overall,
			RiskLevel:    models.RiskLevelLow,
			IsVerified:   true,
		},
	}
}

func newTestWorker(t *testing.T, suppliers *mockSupplierRepo, checks *mockVerificationRepo, executor *mockExecutor, nats *mockNATS, policy RetryPolicy) (*Worker, *[]time.Duration) {
	t.Helper()
	ledger := verification.NewLedger()
	w := NewWorker(suppliers, checks, executor, ledger, nats, policy, zaptest.NewLogger(t))

	var slept []time.Duration
	w.sleep = func(d time.Duration) { slept = append(slept, d) }
	w.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return w, &slept
}

func TestWorkerHandleSuccess(t *testing.T) {
	supplier := &models.Supplier{ID: "s1", Country: "China"}
	suppliers := &mockSupplierRepo{supplier: supplier}

	var statusSeen []models.VerificationStatus
	suppliers.setStatusFunc = func(_ context.Context, _ pgx.Tx, _ string, status models.VerificationStatus, _ bool) error {
		statusSeen = append(statusSeen, status)
		return nil
	}

	var applied *models.Supplier
	suppliers.applyFunc = func(_ context.Context, _ pgx.Tx, s *models.Supplier) error {
		applied = s
		return nil
	}

	var marked *models.VerificationCheck
	checks := &mockVerificationRepo{
		completedFunc: func(_ context.Context, check *models.VerificationCheck) error {
			marked = check
			return nil
		},
	}

	executor := &mockExecutor{executeFunc: func(_ context.Context, _ *models.Supplier) *verification.RunOutcome {
		return verifiedOutcome("0.90")
	}}
	nats := &mockNATS{}

	w, slept := newTestWorker(t, suppliers, checks, executor, nats, DefaultRetryPolicy())
	w.Handle(context.Background(), messaging.RunVerificationMessage{TaskID: "task-1", SupplierID: "s1"})

	if len(statusSeen) != 1 || statusSeen[0] != models.VerificationStatusInProgress {
		t.Errorf("expected a single in_progress status update, got %v", statusSeen)
	}
	if marked == nil {
		t.Fatal("expected the check to be marked completed")
	}
	if marked.Status != models.VerificationStatusCompleted {
		t.Errorf("expected completed check status, got %q", marked.Status)
	}
	if marked.OverallScore == nil || marked.OverallScore.StringFixed(2) != "0.90" {
		t.Errorf("expected overall score 0.90 on the check, got %v", marked.OverallScore)
	}
	if marked.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if len(marked.CheckedSources) != 1 {
		t.Errorf("expected 1 checked source, got %d", len(marked.CheckedSources))
	}

	if applied == nil {
		t.Fatal("expected the supplier trust state to be persisted")
	}
	if !applied.IsVerified || applied.VerificationScore == nil || applied.VerificationScore.StringFixed(2) != "0.90" {
		t.Errorf("expected verified supplier with score 0.90, got verified=%v score=%v", applied.IsVerified, applied.VerificationScore)
	}
	if applied.VerificationExpiresAt == nil {
		t.Error("expected an expiry date on the verified supplier")
	}

	if len(*slept) != 0 {
		t.Errorf("expected no backoff on success, slept %v", *slept)
	}
	if len(nats.completed) != 1 {
		t.Fatalf("expected one completion event, got %d", len(nats.completed))
	}
	event := nats.completed[0]
	if event.TaskID != "task-1" || event.CheckID != "check-1" || event.Status != string(models.VerificationStatusCompleted) || event.Error != "" {
		t.Errorf("unexpected completion event: %+v", event)
	}
}

func TestWorkerHandleRetriesThenFails(t *testing.T) {
	supplier := &models.Supplier{ID: "s1", Country: "Turkey"}
	suppliers := &mockSupplierRepo{supplier: supplier}

	var failedStatus []bool
	suppliers.setStatusFunc = func(_ context.Context, _ pgx.Tx, _ string, status models.VerificationStatus, verified bool) error {
		if status == models.VerificationStatusFailed {
			failedStatus = append(failedStatus, verified)
		}
		return nil
	}

	applyCalls := 0
	suppliers.applyFunc = func(_ context.Context, _ pgx.Tx, _ *models.Supplier) error {
		applyCalls++
		return nil
	}

	var markFailedMessages []string
	checks := &mockVerificationRepo{
		completedFunc: func(_ context.Context, _ *models.VerificationCheck) error {
			return errors.New("connection reset")
		},
		failedFunc: func(_ context.Context, _ string, errorMessage string) error {
			markFailedMessages = append(markFailedMessages, errorMessage)
			return nil
		},
	}

	executor := &mockExecutor{executeFunc: func(_ context.Context, _ *models.Supplier) *verification.RunOutcome {
		return verifiedOutcome("0.80")
	}}
	nats := &mockNATS{}

	policy := RetryPolicy{MaxAttempts: 3, BackoffBase: 2 * time.Second, MaxBackoff: time.Minute}
	w, slept := newTestWorker(t, suppliers, checks, executor, nats, policy)
	w.Handle(context.Background(), messaging.RunVerificationMessage{TaskID: "task-2", SupplierID: "s1"})

	if len(markFailedMessages) != 3 {
		t.Errorf("expected each of the 3 attempts to record a failed check, got %d", len(markFailedMessages))
	}
	if applyCalls != 0 {
		t.Errorf("expected no trust-state apply on failure, got %d", applyCalls)
	}
	if len(failedStatus) != 3 {
		t.Fatalf("expected 3 failed status updates, got %d", len(failedStatus))
	}
	for _, verified := range failedStatus {
		if verified {
			t.Error("failed run must clear the verified flag")
		}
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("expected backoff %v, slept %v", want, *slept)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("expected backoff %v before attempt %d, got %v", d, i+2, (*slept)[i])
		}
	}

	if len(nats.completed) != 1 {
		t.Fatalf("expected one completion event, got %d", len(nats.completed))
	}
	event := nats.completed[0]
	if event.Status != string(models.VerificationStatusFailed) {
		t.Errorf("expected failed status, got %q", event.Status)
	}
	if event.Error == "" {
		t.Error("expected the last error to be reported")
	}
}

func TestWorkerFailedRunKeepsEarlierOutcome(t *testing.T) {
	score := decimal.RequireFromString("0.92")
	expiry := time.Date(2026, 5, 30, 12, 0, 0, 0, time.UTC)
	supplier := &models.Supplier{
		ID:                    "s1",
		Country:               "India",
		VerificationStatus:    models.VerificationStatusCompleted,
		VerificationScore:     &score,
		IsVerified:            true,
		VerificationExpiresAt: &expiry,
	}
	suppliers := &mockSupplierRepo{supplier: supplier}

	checks := &mockVerificationRepo{
		completedFunc: func(_ context.Context, _ *models.VerificationCheck) error {
			return errors.New("write failed")
		},
	}
	executor := &mockExecutor{executeFunc: func(_ context.Context, _ *models.Supplier) *verification.RunOutcome {
		return verifiedOutcome("0.30")
	}}
	nats := &mockNATS{}

	policy := RetryPolicy{MaxAttempts: 1, BackoffBase: time.Second}
	w, _ := newTestWorker(t, suppliers, checks, executor, nats, policy)
	w.Handle(context.Background(), messaging.RunVerificationMessage{TaskID: "task-3", SupplierID: "s1"})

	// Only the status flags change on failure. The earlier completed run's
	// score and expiry stay in place.
	if supplier.VerificationScore == nil || supplier.VerificationScore.StringFixed(2) != "0.92" {
		t.Errorf("expected prior score 0.92 to survive, got %v", supplier.VerificationScore)
	}
	if supplier.VerificationExpiresAt == nil || !supplier.VerificationExpiresAt.Equal(expiry) {
		t.Errorf("expected prior expiry to survive, got %v", supplier.VerificationExpiresAt)
	}
}

func TestWorkerHandleMarksInProgressBeforeRunning(t *testing.T) {
	supplier := &models.Supplier{ID: "s1", Country: "Russia", IsVerified: true}
	suppliers := &mockSupplierRepo{supplier: supplier}

	var inProgressVerified *bool
	suppliers.setStatusFunc = func(_ context.Context, _ pgx.Tx, _ string, status models.VerificationStatus, verified bool) error {
		if status == models.VerificationStatusInProgress {
			inProgressVerified = &verified
		}
		return nil
	}

	checks := &mockVerificationRepo{}
	executor := &mockExecutor{executeFunc: func(_ context.Context, _ *models.Supplier) *verification.RunOutcome {
		return verifiedOutcome("0.85")
	}}

	w, _ := newTestWorker(t, suppliers, checks, executor, &mockNATS{}, DefaultRetryPolicy())
	w.Handle(context.Background(), messaging.RunVerificationMessage{TaskID: "task-4", SupplierID: "s1"})

	if inProgressVerified == nil {
		t.Fatal("expected the supplier to be marked in progress")
	}
	if !*inProgressVerified {
		t.Error("marking in progress must preserve the current verified flag")
	}
}
