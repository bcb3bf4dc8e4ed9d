package services

import (
	"context"
	"time"

	ordermodels "quiklii/internal/order/domain/models"
	"quiklii/internal/payment/adapter/provider"
	"quiklii/internal/payment/app/core"
	"quiklii/internal/payment/domain/dto"
	"quiklii/internal/payment/domain/models"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"

	"github.com/google/uuid"
)

type PaymentService struct {
	paymentRepo core.IPaymentRepo
	providers   *provider.Registry
	events      core.IEventPublisher
	orders      core.IOrderGateway
	mylog       logger.Logger
}

func NewPaymentService(
	paymentRepo core.IPaymentRepo,
	providers *provider.Registry,
	events core.IEventPublisher,
	orders core.IOrderGateway,
	mylog logger.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		providers:   providers,
		events:      events,
		orders:      orders,
		mylog:       mylog,
	}
}

// Initiate creates a pending payment attempt and returns its reference.
// Settlement is asynchronous; the provider reports back via webhook.
func (ps *PaymentService) Initiate(ctx context.Context, actor auth.Claims, req dto.InitiatePaymentRequest) (*models.Payment, error) {
	mylog := ps.mylog.Action("initiate_payment").With("order_id", req.OrderID)

	if err := validateInitiateRequest(req); err != nil {
		return nil, err
	}
	if !ps.providers.Known(req.Provider) {
		return nil, errs.Validation("unknown payment provider: %s", req.Provider)
	}

	// The order must exist and still be awaiting payment; a cancelled or
	// in-flight order never picks up another attempt.
	if err := ps.orders.CheckPayable(ctx, req.OrderID); err != nil {
		return nil, err
	}

	// One non-terminal payment per order; retries only after the previous
	// attempt settles.
	if current, err := ps.paymentRepo.GetCurrentByOrder(ctx, req.OrderID); err == nil {
		return nil, errs.Conflict("payment %s for order %d is still %s", current.ID, req.OrderID, current.Status)
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, err
	}

	payment := &models.Payment{
		ID:        uuid.NewString(),
		OrderID:   req.OrderID,
		UserID:    actor.UserID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Method:    req.Method,
		Provider:  req.Provider,
		Status:    models.PaymentPending,
		Reference: uuid.NewString(),
	}

	created, err := ps.paymentRepo.Create(ctx, payment)
	if err != nil {
		mylog.Error("Failed to create payment", err)
		return nil, err
	}

	mylog.With("payment_id", created.ID, "reference", created.Reference).Info("Payment initiated")
	return created, nil
}

// HandleCallback applies one provider webhook. Signature failures are
// discarded (the provider retries per its own policy); callbacks for
// settled payments are idempotently ignored.
func (ps *PaymentService) HandleCallback(ctx context.Context, providerName models.Provider, signature string, body []byte) error {
	mylog := ps.mylog.Action("provider_callback").With("provider", providerName)

	if err := ps.providers.Verify(providerName, signature, body); err != nil {
		mylog.Action("callback_rejected").Error("Webhook verification failed", err)
		return err
	}

	callback, err := ps.providers.Parse(providerName, body)
	if err != nil {
		return err
	}

	newStatus, err := ps.providers.MapStatus(providerName, callback.RawStatus)
	if err != nil {
		return err
	}

	payment, err := ps.paymentRepo.GetByReference(ctx, callback.Reference)
	if err != nil {
		return err
	}

	if payment.Status.Terminal() {
		mylog.Action("callback_ignored").Info("Duplicate callback for settled payment",
			"payment_id", payment.ID, "status", payment.Status)
		return nil
	}
	if newStatus == payment.Status {
		return nil
	}

	errorMessage := ""
	if newStatus == models.PaymentFailed {
		errorMessage = "provider reported " + callback.RawStatus
	}

	updated, err := ps.paymentRepo.UpdateStatus(ctx, payment.ID, newStatus, callback.ProviderTxnID, body, errorMessage, time.Now().UTC())
	if err != nil {
		return err
	}

	ps.emitStatusChanged(ctx, mylog, updated, payment.Status)

	if newStatus == models.PaymentCompleted {
		if err := ps.orders.ConfirmOnPayment(ctx, payment.OrderID); err != nil {
			// The payment is captured either way; order confirmation is
			// retried by the provider's next delivery or by staff.
			mylog.Action("order_confirm_failed").Error("Failed to confirm order after payment", err)
			return errs.Internal("payment captured but order confirmation failed", err)
		}
	}

	// A failed payment leaves the order pending so the customer can retry.
	mylog.Action("callback_processed").Info("Payment status updated",
		"payment_id", updated.ID, "new_status", updated.Status)
	return nil
}

// RecordRefundIntent registers compensation for a cancelled order. Without
// a captured payment there is nothing to compensate.
func (ps *PaymentService) RecordRefundIntent(ctx context.Context, req dto.RefundRequest) (*models.RefundIntent, error) {
	mylog := ps.mylog.Action("record_refund_intent").With("order_id", req.OrderID)

	if req.OrderID <= 0 {
		return nil, errs.Validation("order_id is required")
	}

	payment, err := ps.paymentRepo.GetLatestByOrder(ctx, req.OrderID)
	if err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			mylog.Info("No payment to refund")
			return nil, nil
		}
		return nil, err
	}
	if payment.Status != models.PaymentCompleted {
		mylog.Info("No captured payment to refund", "payment_status", payment.Status)
		return nil, nil
	}

	intent := &models.RefundIntent{
		ID:        uuid.NewString(),
		PaymentID: payment.ID,
		OrderID:   req.OrderID,
		Amount:    payment.Amount,
		Status:    models.RefundPending,
		Reason:    req.Reason,
	}
	created, err := ps.paymentRepo.CreateRefundIntent(ctx, intent)
	if err != nil {
		return nil, err
	}

	mylog.With("refund_id", created.ID, "payment_id", payment.ID).Info("Refund intent recorded")
	return created, nil
}

func (ps *PaymentService) emitStatusChanged(ctx context.Context, mylog logger.Logger, payment *models.Payment, previous models.PaymentStatus) {
	event := dto.StatusChangedEvent{
		PaymentID:      payment.ID,
		OrderID:        payment.OrderID,
		UserID:         payment.UserID,
		PreviousStatus: previous,
		NewStatus:      payment.Status,
		Timestamp:      time.Now().UTC(),
	}
	if err := ps.events.PublishStatusChanged(ctx, event); err != nil {
		mylog.Action("event_publish_failed").Error("Failed to publish payment event", err)
	}
}

func validateInitiateRequest(req dto.InitiatePaymentRequest) error {
	if req.OrderID <= 0 {
		return errs.Validation("order_id is required")
	}
	if req.Amount <= 0 {
		return errs.Validation("amount must be positive")
	}
	if !models.ValidCurrency(req.Currency) {
		return errs.Validation("unsupported currency: %s", req.Currency)
	}
	if !ordermodels.ValidPaymentMethod(ordermodels.PaymentMethod(req.Method)) {
		return errs.Validation("unknown payment method: %s", req.Method)
	}
	return nil
}
