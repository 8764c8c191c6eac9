package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
)

// record lets the reconciliation engine treat registered and pay-first
// payments the same way. Exactly one of the two pointers is set.
type record struct {
	payment *entity.Payment
	pending *entity.PendingPayment
}

func (r *record) kind() string {
	if r.pending != nil {
		return entity.RecordKindPendingPayment
	}
	return entity.RecordKindPayment
}

func (r *record) isPending() bool { return r.pending != nil }

func (r *record) id() uint64 {
	if r.pending != nil {
		return r.pending.ID
	}
	return r.payment.ID
}

func (r *record) provider() string {
	if r.pending != nil {
		return r.pending.Provider
	}
	return r.payment.Provider
}

func (r *record) reference() string {
	if r.pending != nil {
		return r.pending.Reference
	}
	return r.payment.Reference
}

func (r *record) merchantOrderID() string {
	if r.pending != nil {
		return r.pending.MerchantOrderID
	}
	return r.payment.MerchantOrderID
}

func (r *record) courseID() uint64 {
	if r.pending != nil {
		return r.pending.CourseID
	}
	return r.payment.CourseID
}

func (r *record) amountMinor() int64 {
	if r.pending != nil {
		return r.pending.AmountMinor
	}
	return r.payment.AmountMinor
}

func (r *record) currency() string {
	if r.pending != nil {
		return r.pending.Currency
	}
	return r.payment.Currency
}

func (r *record) status() entity.PaymentStatus {
	if r.pending != nil {
		return r.pending.Status
	}
	return r.payment.Status
}

func (r *record) reviewReason() *string {
	if r.pending != nil {
		return r.pending.ReviewReason
	}
	return r.payment.ReviewReason
}

func (r *record) apply(status entity.PaymentStatus, reviewReason *string, now time.Time) {
	var completedAt *time.Time
	if status == entity.PaymentStatusCompleted {
		completedAt = &now
	}

	if r.pending != nil {
		r.pending.Status = status
		r.pending.ReviewReason = reviewReason
		if completedAt != nil {
			r.pending.CompletedAt = completedAt
		}
		r.pending.UpdatedAt = now
		return
	}

	r.payment.Status = status
	r.payment.ReviewReason = reviewReason
	if completedAt != nil {
		r.payment.CompletedAt = completedAt
	}
	r.payment.UpdatedAt = now
}

func (r *record) save(ctx context.Context, repos repository.TxRepositories) error {
	if r.pending != nil {
		return repos.UpdatePendingPaymentState(ctx, r.pending)
	}
	return repos.UpdatePaymentState(ctx, r.payment)
}

func lockRecord(ctx context.Context, repos repository.TxRepositories, preferPending bool, key repository.LookupKey) (*record, error) {
	lockers := []func() (*record, error){
		func() (*record, error) {
			payment, err := repos.LockPayment(ctx, key)
			if err != nil || payment == nil {
				return nil, err
			}
			return &record{payment: payment}, nil
		},
		func() (*record, error) {
			pending, err := repos.LockPendingPayment(ctx, key)
			if err != nil || pending == nil {
				return nil, err
			}
			return &record{pending: pending}, nil
		},
	}
	if preferPending {
		lockers[0], lockers[1] = lockers[1], lockers[0]
	}

	for _, lock := range lockers {
		rec, err := lock()
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, nil
}
