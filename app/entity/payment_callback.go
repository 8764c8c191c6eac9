package entity

import "time"

type PaymentCallback struct {
	ID uint64

	RecordKind string
	RecordID   uint64

	Provider        string
	Reference       string
	MerchantOrderID string
	ResultCode      string
	Signature       string
	Payload         string
	Outcome         string

	CreatedAt time.Time
}
