package entity

import "time"

// PendingPayment is a pay-first checkout made before the customer has an
// account. It is converted into a Payment and an Enrollment when the
// customer completes registration, then deleted.
type PendingPayment struct {
	ID uint64

	Email string
	Name  string
	Phone string

	CourseID uint64

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
