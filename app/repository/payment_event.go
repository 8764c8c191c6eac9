package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
)

type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (
			record_kind, record_id, event_type, source, old_status, new_status, result_code, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var oldStatus interface{}
	if event.OldStatus != nil {
		oldStatus = string(*event.OldStatus)
	}

	result, err := r.db.ExecContext(ctx, query,
		event.RecordKind,
		event.RecordID,
		event.EventType,
		event.Source,
		oldStatus,
		string(event.NewStatus),
		nullableStringValue(event.ResultCode),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}
