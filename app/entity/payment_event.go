package entity

import "time"

const (
	RecordKindPayment        = "payment"
	RecordKindPendingPayment = "pending_payment"
)

type PaymentEvent struct {
	ID uint64

	RecordKind string
	RecordID   uint64

	EventType string
	Source    string

	OldStatus  *PaymentStatus
	NewStatus  PaymentStatus
	ResultCode *string

	CreatedAt time.Time
}
