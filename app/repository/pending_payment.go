package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
)

var (
	ErrPendingPaymentNotFound      = errors.New("pending payment not found")
	ErrPendingPaymentAlreadyExists = errors.New("pending payment already exists")
)

const pendingPaymentColumns = `
	id, email, name, phone, course_id, provider, payment_method, reference, merchant_order_id,
	amount_minor, currency, status, payment_url, va_number, qr_string, expires_at,
	review_reason, completed_at, created_at, updated_at
`

type PendingPaymentRepository struct {
	db DBTX
}

func NewPendingPaymentRepository(db DBTX) *PendingPaymentRepository {
	return &PendingPaymentRepository{db: db}
}

func (r *PendingPaymentRepository) Create(ctx context.Context, pending *entity.PendingPayment) error {
	query := `
		INSERT INTO pending_payments (
			email, name, phone, course_id, provider, payment_method, reference, merchant_order_id,
			amount_minor, currency, status, payment_url, va_number, qr_string, expires_at,
			review_reason, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		pending.Email,
		pending.Name,
		pending.Phone,
		pending.CourseID,
		pending.Provider,
		pending.PaymentMethod,
		pending.Reference,
		pending.MerchantOrderID,
		pending.AmountMinor,
		pending.Currency,
		string(pending.Status),
		nullableStringValue(pending.PaymentURL),
		nullableStringValue(pending.VANumber),
		nullableStringValue(pending.QRString),
		nullableTimeValue(pending.ExpiresAt),
		nullableStringValue(pending.ReviewReason),
		nullableTimeValue(pending.CompletedAt),
		pending.CreatedAt,
		pending.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPendingPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	pending.ID = uint64(id)
	return nil
}

func (r *PendingPaymentRepository) UpdateState(ctx context.Context, pending *entity.PendingPayment) error {
	query := `
		UPDATE pending_payments SET
			status = ?,
			review_reason = ?,
			completed_at = ?,
			updated_at = ?
		WHERE id = ? AND status <> ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(pending.Status),
		nullableStringValue(pending.ReviewReason),
		nullableTimeValue(pending.CompletedAt),
		pending.UpdatedAt,
		pending.ID,
		string(entity.PaymentStatusCompleted),
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentStateConflict
	}
	return nil
}

func (r *PendingPaymentRepository) Delete(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPendingPaymentNotFound
	}
	return nil
}

func (r *PendingPaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.PendingPayment, error) {
	query := `SELECT ` + pendingPaymentColumns + ` FROM pending_payments WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *PendingPaymentRepository) FindByReference(ctx context.Context, reference string) (*entity.PendingPayment, error) {
	query := `SELECT ` + pendingPaymentColumns + ` FROM pending_payments WHERE reference = ? LIMIT 1`
	return r.findOne(ctx, query, reference)
}

func (r *PendingPaymentRepository) FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*entity.PendingPayment, error) {
	query := `SELECT ` + pendingPaymentColumns + ` FROM pending_payments WHERE merchant_order_id = ? LIMIT 1`
	return r.findOne(ctx, query, merchantOrderID)
}

func (r *PendingPaymentRepository) FindForUpdate(ctx context.Context, key LookupKey) (*entity.PendingPayment, error) {
	condition, arg := key.where()
	query := `SELECT ` + pendingPaymentColumns + ` FROM pending_payments WHERE ` + condition + ` LIMIT 1 FOR UPDATE`
	return r.findOne(ctx, query, arg)
}

func (r *PendingPaymentRepository) ListStalePending(ctx context.Context, before time.Time, limit int32) ([]*entity.PendingPayment, error) {
	query := `SELECT ` + pendingPaymentColumns + `
		FROM pending_payments
		WHERE status = ?
		  AND review_reason IS NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, string(entity.PaymentStatusPending), before, limit)
}

func (r *PendingPaymentRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PendingPayment, error) {
	query := `SELECT ` + pendingPaymentColumns + `
		FROM pending_payments
		WHERE status = ?
		  AND review_reason IS NULL
		  AND COALESCE(expires_at, created_at) <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, string(entity.PaymentStatusPending), cutoff, limit)
}

func (r *PendingPaymentRepository) ListHeldForReview(ctx context.Context, limit int32) ([]*entity.PendingPayment, error) {
	query := `SELECT ` + pendingPaymentColumns + `
		FROM pending_payments
		WHERE status = ?
		  AND review_reason IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, string(entity.PaymentStatusPending), limit)
}

func (r *PendingPaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.PendingPayment, error) {
	pending := &entity.PendingPayment{}
	if err := scanPendingPayment(r.db.QueryRowContext(ctx, query, args...), pending); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *PendingPaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.PendingPayment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PendingPayment, 0)
	for rows.Next() {
		item := &entity.PendingPayment{}
		if err := scanPendingPayment(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func scanPendingPayment(scan rowScanner, pending *entity.PendingPayment) error {
	var status string
	var paymentURL sql.NullString
	var vaNumber sql.NullString
	var qrString sql.NullString
	var expiresAt sql.NullTime
	var reviewReason sql.NullString
	var completedAt sql.NullTime

	err := scan.Scan(
		&pending.ID,
		&pending.Email,
		&pending.Name,
		&pending.Phone,
		&pending.CourseID,
		&pending.Provider,
		&pending.PaymentMethod,
		&pending.Reference,
		&pending.MerchantOrderID,
		&pending.AmountMinor,
		&pending.Currency,
		&status,
		&paymentURL,
		&vaNumber,
		&qrString,
		&expiresAt,
		&reviewReason,
		&completedAt,
		&pending.CreatedAt,
		&pending.UpdatedAt,
	)
	if err != nil {
		return err
	}

	pending.Status = entity.PaymentStatus(status)
	pending.PaymentURL = stringPtrFromNull(paymentURL)
	pending.VANumber = stringPtrFromNull(vaNumber)
	pending.QRString = stringPtrFromNull(qrString)
	pending.ExpiresAt = timePtrFromNull(expiresAt)
	pending.ReviewReason = stringPtrFromNull(reviewReason)
	pending.CompletedAt = timePtrFromNull(completedAt)

	return nil
}
