package db

import (
	"context"
	"errors"
	"time"

	"quiklii/internal/payment/app/core"
	"quiklii/internal/payment/domain/models"
	"quiklii/internal/xpkg/db"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"

	"github.com/jackc/pgx/v5"
)

type PaymentRepo struct {
	db  *db.DB
	log logger.Logger
}

func NewPaymentRepo(database *db.DB, log logger.Logger) core.IPaymentRepo {
	return &PaymentRepo{
		db:  database,
		log: log,
	}
}

const paymentColumns = `
	id, order_id, user_id, amount, currency, method, provider, status,
	reference, provider_txn_id, provider_payload, error_message,
	processed_at, created_at, updated_at
`

func (pr *PaymentRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	now := time.Now().UTC()
	// The partial unique index on (order_id) WHERE status NOT IN
	// (terminal set) backs the one-active-payment rule under races.
	_, err := pr.db.Pool.Exec(ctx, `
		INSERT INTO payments (
			id, order_id, user_id, amount, currency, method, provider,
			status, reference, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`,
		payment.ID,
		payment.OrderID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Provider,
		payment.Status,
		payment.Reference,
		now,
	)
	if err != nil {
		return nil, errs.Internal("failed to insert payment", err)
	}

	payment.CreatedAt = now
	payment.UpdatedAt = now
	return payment, nil
}

func (pr *PaymentRepo) GetByID(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := pr.scanOne(pr.db.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE id = $1
	`, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("payment %s not found", paymentID)
	}
	return payment, err
}

func (pr *PaymentRepo) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	payment, err := pr.scanOne(pr.db.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE reference = $1
	`, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("payment with reference %s not found", reference)
	}
	return payment, err
}

func (pr *PaymentRepo) GetCurrentByOrder(ctx context.Context, orderID int64) (*models.Payment, error) {
	payment, err := pr.scanOne(pr.db.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE order_id = $1 AND status IN ('pending', 'processing')
		ORDER BY created_at DESC
		LIMIT 1
	`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("no active payment for order %d", orderID)
	}
	return payment, err
}

func (pr *PaymentRepo) GetLatestByOrder(ctx context.Context, orderID int64) (*models.Payment, error) {
	payment, err := pr.scanOne(pr.db.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("no payment for order %d", orderID)
	}
	return payment, err
}

func (pr *PaymentRepo) UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus, txnID string, payload []byte, errorMessage string, processedAt time.Time) (*models.Payment, error) {
	payment, err := pr.scanOne(pr.db.Pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $1,
		    provider_txn_id = NULLIF($2, ''),
		    provider_payload = $3,
		    error_message = NULLIF($4, ''),
		    processed_at = $5,
		    updated_at = $5
		WHERE id = $6
		RETURNING `+paymentColumns+`
	`, status, txnID, payload, errorMessage, processedAt, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("payment %s not found", paymentID)
	}
	return payment, err
}

func (pr *PaymentRepo) CreateRefundIntent(ctx context.Context, intent *models.RefundIntent) (*models.RefundIntent, error) {
	now := time.Now().UTC()
	// One pending intent per payment; a second cancel is a no-op.
	tag, err := pr.db.Pool.Exec(ctx, `
		INSERT INTO refund_intents (id, payment_id, order_id, amount, status, attempts, reason, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, 0, $6, $7, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM refund_intents WHERE payment_id = $2 AND status = 'pending'
		)
	`, intent.ID, intent.PaymentID, intent.OrderID, intent.Amount, intent.Status, intent.Reason, now)
	if err != nil {
		return nil, errs.Internal("failed to insert refund intent", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, errs.Conflict("refund for payment %s is already pending", intent.PaymentID)
	}

	intent.CreatedAt = now
	intent.UpdatedAt = now
	return intent, nil
}

func (pr *PaymentRepo) PendingRefundIntents(ctx context.Context, maxAttempts int) ([]models.RefundIntent, error) {
	rows, err := pr.db.Pool.Query(ctx, `
		SELECT id, payment_id, order_id, amount, status, attempts,
		       COALESCE(last_error, ''), COALESCE(reason, ''), created_at, updated_at
		FROM refund_intents
		WHERE status = 'pending' AND attempts < $1
		ORDER BY created_at
	`, maxAttempts)
	if err != nil {
		return nil, errs.Internal("failed to load refund intents", err)
	}
	defer rows.Close()

	var intents []models.RefundIntent
	for rows.Next() {
		var intent models.RefundIntent
		if err := rows.Scan(&intent.ID, &intent.PaymentID, &intent.OrderID, &intent.Amount,
			&intent.Status, &intent.Attempts, &intent.LastError, &intent.Reason,
			&intent.CreatedAt, &intent.UpdatedAt); err != nil {
			return nil, errs.Internal("failed to scan refund intent", err)
		}
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("failed to read refund intents", err)
	}

	return intents, nil
}

func (pr *PaymentRepo) UpdateRefundIntent(ctx context.Context, intent *models.RefundIntent) error {
	_, err := pr.db.Pool.Exec(ctx, `
		UPDATE refund_intents
		SET status = $1, attempts = $2, last_error = NULLIF($3, ''), updated_at = $4
		WHERE id = $5
	`, intent.Status, intent.Attempts, intent.LastError, time.Now().UTC(), intent.ID)
	if err != nil {
		return errs.Internal("failed to update refund intent", err)
	}
	return nil
}

func (pr *PaymentRepo) scanOne(row pgx.Row) (*models.Payment, error) {
	payment := &models.Payment{}
	var txnID, errorMessage *string
	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&payment.Provider,
		&payment.Status,
		&payment.Reference,
		&txnID,
		&payment.ProviderPayload,
		&errorMessage,
		&payment.ProcessedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errs.Internal("failed to scan payment", err)
	}
	if txnID != nil {
		payment.ProviderTxnID = *txnID
	}
	if errorMessage != nil {
		payment.ErrorMessage = *errorMessage
	}
	return payment, nil
}
