package refund

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiklii/internal/payment/domain/dto"
	"quiklii/internal/payment/domain/models"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepRepo struct {
	payments map[string]*models.Payment
	intent   *models.RefundIntent
}

func (r *sweepRepo) Create(_ context.Context, p *models.Payment) (*models.Payment, error) {
	return p, nil
}

func (r *sweepRepo) GetByID(_ context.Context, paymentID string) (*models.Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, errs.NotFound("payment %s not found", paymentID)
	}
	copied := *p
	return &copied, nil
}

func (r *sweepRepo) GetByReference(_ context.Context, _ string) (*models.Payment, error) {
	return nil, errs.NotFound("not found")
}

func (r *sweepRepo) GetCurrentByOrder(_ context.Context, _ int64) (*models.Payment, error) {
	return nil, errs.NotFound("not found")
}

func (r *sweepRepo) GetLatestByOrder(_ context.Context, orderID int64) (*models.Payment, error) {
	var latest *models.Payment
	for _, p := range r.payments {
		if p.OrderID == orderID {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, errs.NotFound("no payment for order %d", orderID)
	}
	copied := *latest
	return &copied, nil
}

func (r *sweepRepo) UpdateStatus(_ context.Context, paymentID string, status models.PaymentStatus, txnID string, payload []byte, errorMessage string, processedAt time.Time) (*models.Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, errs.NotFound("payment %s not found", paymentID)
	}
	p.Status = status
	copied := *p
	return &copied, nil
}

func (r *sweepRepo) CreateRefundIntent(_ context.Context, intent *models.RefundIntent) (*models.RefundIntent, error) {
	r.intent = intent
	return intent, nil
}

func (r *sweepRepo) PendingRefundIntents(_ context.Context, maxAttempts int) ([]models.RefundIntent, error) {
	if r.intent == nil || r.intent.Status != models.RefundPending || r.intent.Attempts >= maxAttempts {
		return nil, nil
	}
	return []models.RefundIntent{*r.intent}, nil
}

func (r *sweepRepo) UpdateRefundIntent(_ context.Context, intent *models.RefundIntent) error {
	copied := *intent
	r.intent = &copied
	return nil
}

type sweepEvents struct {
	events []dto.StatusChangedEvent
}

func (e *sweepEvents) Close() error { return nil }

func (e *sweepEvents) PublishStatusChanged(_ context.Context, event dto.StatusChangedEvent) error {
	e.events = append(e.events, event)
	return nil
}

type flakyExecutor struct {
	failures int
	calls    int
}

func (e *flakyExecutor) Refund(_ context.Context, _ *models.Payment, _ int64) error {
	e.calls++
	if e.calls <= e.failures {
		return errors.New("gateway timeout")
	}
	return nil
}

func testSweeper(t *testing.T, executor *flakyExecutor) (*Sweeper, *sweepRepo, *sweepEvents) {
	t.Helper()
	mylog, err := logger.New("ERROR")
	require.NoError(t, err)

	repo := &sweepRepo{
		payments: map[string]*models.Payment{
			"pay-1": {
				ID:      "pay-1",
				OrderID: 42,
				UserID:  7,
				Amount:  43500,
				Status:  models.PaymentCompleted,
			},
		},
		intent: &models.RefundIntent{
			ID:        "ref-1",
			PaymentID: "pay-1",
			OrderID:   42,
			Amount:    43500,
			Status:    models.RefundPending,
		},
	}
	events := &sweepEvents{}
	return NewSweeper(repo, executor, events, time.Minute, 5, mylog), repo, events
}

func TestSweepSettlesRefund(t *testing.T) {
	sweeper, repo, events := testSweeper(t, &flakyExecutor{})

	sweeper.Sweep(context.Background())

	assert.Equal(t, models.RefundSucceeded, repo.intent.Status)
	assert.Equal(t, 1, repo.intent.Attempts)
	assert.Equal(t, models.PaymentRefunded, repo.payments["pay-1"].Status)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.PaymentCompleted, events.events[0].PreviousStatus)
	assert.Equal(t, models.PaymentRefunded, events.events[0].NewStatus)
}

func TestSweepRefundsTheIntentsOwnPayment(t *testing.T) {
	executor := &flakyExecutor{}
	sweeper, repo, events := testSweeper(t, executor)

	// A newer attempt on the same order must not absorb the refund.
	repo.payments["pay-2"] = &models.Payment{
		ID:        "pay-2",
		OrderID:   42,
		UserID:    7,
		Amount:    43500,
		Status:    models.PaymentPending,
		CreatedAt: time.Now().UTC(),
	}

	sweeper.Sweep(context.Background())

	assert.Equal(t, models.RefundSucceeded, repo.intent.Status)
	assert.Equal(t, models.PaymentRefunded, repo.payments["pay-1"].Status)
	assert.Equal(t, models.PaymentPending, repo.payments["pay-2"].Status)

	require.Len(t, events.events, 1)
	assert.Equal(t, "pay-1", events.events[0].PaymentID)
}

func TestSweepRejectsNonCapturedPayment(t *testing.T) {
	executor := &flakyExecutor{}
	sweeper, repo, events := testSweeper(t, executor)
	repo.payments["pay-1"].Status = models.PaymentPending

	sweeper.Sweep(context.Background())

	assert.Equal(t, models.RefundFailed, repo.intent.Status)
	assert.NotEmpty(t, repo.intent.LastError)
	assert.Zero(t, executor.calls)
	assert.Equal(t, models.PaymentPending, repo.payments["pay-1"].Status)
	assert.Empty(t, events.events)
}

func TestSweepTreatsRefundedPaymentAsSettled(t *testing.T) {
	executor := &flakyExecutor{}
	sweeper, repo, _ := testSweeper(t, executor)
	repo.payments["pay-1"].Status = models.PaymentRefunded

	sweeper.Sweep(context.Background())

	assert.Equal(t, models.RefundSucceeded, repo.intent.Status)
	assert.Zero(t, executor.calls)
}

func TestSweepRetriesUntilSuccess(t *testing.T) {
	executor := &flakyExecutor{failures: 2}
	sweeper, repo, events := testSweeper(t, executor)

	sweeper.Sweep(context.Background())
	assert.Equal(t, models.RefundPending, repo.intent.Status)
	assert.Equal(t, "gateway timeout", repo.intent.LastError)

	sweeper.Sweep(context.Background())
	assert.Equal(t, models.RefundPending, repo.intent.Status)

	sweeper.Sweep(context.Background())
	assert.Equal(t, models.RefundSucceeded, repo.intent.Status)
	assert.Equal(t, 3, repo.intent.Attempts)
	assert.Empty(t, repo.intent.LastError)
	assert.Len(t, events.events, 1)
}

func TestSweepGivesUpAfterMaxAttempts(t *testing.T) {
	executor := &flakyExecutor{failures: 100}
	sweeper, repo, events := testSweeper(t, executor)

	for i := 0; i < 10; i++ {
		sweeper.Sweep(context.Background())
	}

	assert.Equal(t, models.RefundFailed, repo.intent.Status)
	assert.Equal(t, 5, repo.intent.Attempts)
	assert.Equal(t, 5, executor.calls)
	assert.Equal(t, models.PaymentCompleted, repo.payments["pay-1"].Status)
	assert.Empty(t, events.events)
}

func TestSweepSkipsSettledIntents(t *testing.T) {
	executor := &flakyExecutor{}
	sweeper, repo, _ := testSweeper(t, executor)
	repo.intent.Status = models.RefundSucceeded

	sweeper.Sweep(context.Background())
	assert.Zero(t, executor.calls)
}
