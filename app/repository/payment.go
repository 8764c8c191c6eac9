package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrPaymentStateConflict = errors.New("payment state is terminal")
)

const paymentColumns = `
	id, account_id, course_id, provider, payment_method, reference, merchant_order_id,
	amount_minor, currency, status, payment_url, va_number, qr_string, expires_at,
	review_reason, completed_at, created_at, updated_at
`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			account_id, course_id, provider, payment_method, reference, merchant_order_id,
			amount_minor, currency, status, payment_url, va_number, qr_string, expires_at,
			review_reason, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.AccountID,
		payment.CourseID,
		payment.Provider,
		payment.PaymentMethod,
		payment.Reference,
		payment.MerchantOrderID,
		payment.AmountMinor,
		payment.Currency,
		string(payment.Status),
		nullableStringValue(payment.PaymentURL),
		nullableStringValue(payment.VANumber),
		nullableStringValue(payment.QRString),
		nullableTimeValue(payment.ExpiresAt),
		nullableStringValue(payment.ReviewReason),
		nullableTimeValue(payment.CompletedAt),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

// UpdateState persists status, review flag and completion time. COMPLETED
// rows are never rewritten, so a stale writer cannot downgrade them.
func (r *PaymentRepository) UpdateState(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments SET
			status = ?,
			review_reason = ?,
			completed_at = ?,
			updated_at = ?
		WHERE id = ? AND status <> ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(payment.Status),
		nullableStringValue(payment.ReviewReason),
		nullableTimeValue(payment.CompletedAt),
		payment.UpdatedAt,
		payment.ID,
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

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *PaymentRepository) FindByReference(ctx context.Context, reference string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = ? LIMIT 1`
	return r.findOne(ctx, query, reference)
}

func (r *PaymentRepository) FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE merchant_order_id = ? LIMIT 1`
	return r.findOne(ctx, query, merchantOrderID)
}

// FindForUpdate must run inside a transaction; it holds the row lock until
// commit so concurrent reconciliations of one reference serialize.
func (r *PaymentRepository) FindForUpdate(ctx context.Context, key LookupKey) (*entity.Payment, error) {
	condition, arg := key.where()
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + condition + ` LIMIT 1 FOR UPDATE`
	return r.findOne(ctx, query, arg)
}

func (r *PaymentRepository) ListStalePending(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = ?
		  AND review_reason IS NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, string(entity.PaymentStatusPending), before, limit)
}

func (r *PaymentRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = ?
		  AND review_reason IS NULL
		  AND COALESCE(expires_at, created_at) <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, string(entity.PaymentStatusPending), cutoff, limit)
}

func (r *PaymentRepository) ListHeldForReview(ctx context.Context, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = ?
		  AND review_reason IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, string(entity.PaymentStatusPending), limit)
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Payment, error) {
	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, args...), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var status string
	var paymentURL sql.NullString
	var vaNumber sql.NullString
	var qrString sql.NullString
	var expiresAt sql.NullTime
	var reviewReason sql.NullString
	var completedAt sql.NullTime

	err := scan.Scan(
		&payment.ID,
		&payment.AccountID,
		&payment.CourseID,
		&payment.Provider,
		&payment.PaymentMethod,
		&payment.Reference,
		&payment.MerchantOrderID,
		&payment.AmountMinor,
		&payment.Currency,
		&status,
		&paymentURL,
		&vaNumber,
		&qrString,
		&expiresAt,
		&reviewReason,
		&completedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.Status = entity.PaymentStatus(status)
	payment.PaymentURL = stringPtrFromNull(paymentURL)
	payment.VANumber = stringPtrFromNull(vaNumber)
	payment.QRString = stringPtrFromNull(qrString)
	payment.ExpiresAt = timePtrFromNull(expiresAt)
	payment.ReviewReason = stringPtrFromNull(reviewReason)
	payment.CompletedAt = timePtrFromNull(completedAt)

	return nil
}
