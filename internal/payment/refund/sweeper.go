package refund

import (
	"context"
	"fmt"
	"time"

	"quiklii/internal/payment/app/core"
	"quiklii/internal/payment/domain/dto"
	"quiklii/internal/payment/domain/models"
	"quiklii/internal/xpkg/logger"
)

// Sweeper retries pending refund intents on a fixed interval. It is the
// compensating half of cancel-after-capture: the cancel itself never blocks
// on the provider.
type Sweeper struct {
	paymentRepo core.IPaymentRepo
	executor    core.IRefundExecutor
	events      core.IEventPublisher
	interval    time.Duration
	maxAttempts int
	mylog       logger.Logger
}

func NewSweeper(
	paymentRepo core.IPaymentRepo,
	executor core.IRefundExecutor,
	events core.IEventPublisher,
	interval time.Duration,
	maxAttempts int,
	mylog logger.Logger,
) *Sweeper {
	return &Sweeper{
		paymentRepo: paymentRepo,
		executor:    executor,
		events:      events,
		interval:    interval,
		maxAttempts: maxAttempts,
		mylog:       mylog,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.mylog.Action("refund_sweep_started").Info("Refund sweep running", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.mylog.Action("refund_sweep_stopped").Info("Refund sweep stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep processes every retryable intent once.
func (s *Sweeper) Sweep(ctx context.Context) {
	mylog := s.mylog.Action("refund_sweep")

	intents, err := s.paymentRepo.PendingRefundIntents(ctx, s.maxAttempts)
	if err != nil {
		mylog.Error("Failed to load refund intents", err)
		return
	}

	for i := range intents {
		s.process(ctx, &intents[i])
	}
}

func (s *Sweeper) process(ctx context.Context, intent *models.RefundIntent) {
	mylog := s.mylog.Action("refund_attempt").With("refund_id", intent.ID, "payment_id", intent.PaymentID)

	payment, err := s.paymentRepo.GetByID(ctx, intent.PaymentID)
	if err != nil {
		mylog.Error("Failed to load payment for refund", err)
		return
	}

	// Only a captured payment can be refunded. The order may have picked up
	// newer payment rows since the intent was recorded; they are not ours.
	if payment.Status != models.PaymentCompleted {
		if payment.Status == models.PaymentRefunded {
			intent.Status = models.RefundSucceeded
			intent.LastError = ""
		} else {
			intent.Status = models.RefundFailed
			intent.LastError = fmt.Sprintf("payment is %s, not refundable", payment.Status)
			mylog.Action("refund_rejected").Warn("Refund intent targets a non-captured payment",
				"payment_status", payment.Status)
		}
		if err := s.paymentRepo.UpdateRefundIntent(ctx, intent); err != nil {
			mylog.Error("Failed to persist refund intent", err)
		}
		return
	}

	intent.Attempts++

	if err := s.executor.Refund(ctx, payment, intent.Amount); err != nil {
		intent.LastError = err.Error()
		if intent.Attempts >= s.maxAttempts {
			intent.Status = models.RefundFailed
			mylog.Action("refund_exhausted").Error("Refund failed permanently", err)
		} else {
			mylog.Error("Refund attempt failed, will retry", err)
		}
		if updateErr := s.paymentRepo.UpdateRefundIntent(ctx, intent); updateErr != nil {
			mylog.Error("Failed to persist refund attempt", updateErr)
		}
		return
	}

	intent.Status = models.RefundSucceeded
	intent.LastError = ""
	if err := s.paymentRepo.UpdateRefundIntent(ctx, intent); err != nil {
		mylog.Error("Failed to persist refund result", err)
		return
	}

	updated, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentRefunded, payment.ProviderTxnID, nil, "", time.Now().UTC())
	if err != nil {
		mylog.Error("Refund executed but payment row not updated", err)
		return
	}

	event := dto.StatusChangedEvent{
		PaymentID:      updated.ID,
		OrderID:        updated.OrderID,
		UserID:         updated.UserID,
		PreviousStatus: payment.Status,
		NewStatus:      updated.Status,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		mylog.Action("event_publish_failed").Error("Failed to publish refund event", err)
	}

	mylog.Info("Refund settled")
}

// InternalExecutor settles refunds for provider-internal payments without a
// network call. External gateways would implement IRefundExecutor with
// their refund APIs.
type InternalExecutor struct{}

func (InternalExecutor) Refund(_ context.Context, _ *models.Payment, _ int64) error {
	return nil
}
