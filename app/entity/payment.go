package entity

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Payment is a checkout attempt made by an already registered account.
type Payment struct {
	ID uint64

	AccountID uint64
	CourseID  uint64

	Provider        string
	PaymentMethod   string
	Reference       string
	MerchantOrderID string

	AmountMinor int64
	Currency    string

	Status PaymentStatus

	PaymentURL *string
	VANumber   *string
	QRString   *string
	ExpiresAt  *time.Time

	ReviewReason *string
	CompletedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
