package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
)

type PaymentCallbackRepository struct {
	db DBTX
}

func NewPaymentCallbackRepository(db DBTX) *PaymentCallbackRepository {
	return &PaymentCallbackRepository{db: db}
}

func (r *PaymentCallbackRepository) Create(ctx context.Context, callback *entity.PaymentCallback) error {
	query := `
		INSERT INTO payment_callbacks (
			record_kind, record_id, provider, reference, merchant_order_id,
			result_code, signature, payload, outcome, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		callback.RecordKind,
		callback.RecordID,
		callback.Provider,
		callback.Reference,
		callback.MerchantOrderID,
		callback.ResultCode,
		callback.Signature,
		callback.Payload,
		callback.Outcome,
		callback.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	callback.ID = uint64(id)

	return nil
}
