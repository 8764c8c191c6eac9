package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
)

// RunReconcileBatch re-polls PENDING records that have not moved for a
// while. It covers lost webhooks.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	before := s.now().Add(-s.paymentsCfg.ReconcileStaleAfter)
	records, err := s.listRecords(
		func() ([]*entity.Payment, error) { return s.paymentRepo.ListStalePending(ctx, before, s.batchSize()) },
		func() ([]*entity.PendingPayment, error) { return s.pendingRepo.ListStalePending(ctx, before, s.batchSize()) },
	)
	if err != nil {
		return err
	}

	var firstErr error
	for _, rec := range records {
		if _, err := s.pollRecord(ctx, rec, SourceJob); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunExpirePendingBatch fails PENDING records whose checkout expired more
// than PendingTimeout ago. Each one is polled once more first; a record
// the provider could not confirm, or one held for review, is left alone.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) error {
	cutoff := s.now().Add(-s.paymentsCfg.PendingTimeout)
	records, err := s.listRecords(
		func() ([]*entity.Payment, error) { return s.paymentRepo.ListExpiredPending(ctx, cutoff, s.batchSize()) },
		func() ([]*entity.PendingPayment, error) { return s.pendingRepo.ListExpiredPending(ctx, cutoff, s.batchSize()) },
	)
	if err != nil {
		return err
	}

	var firstErr error
	for _, rec := range records {
		degraded, err := s.pollRecord(ctx, rec, SourceJob)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if degraded != "" {
			continue
		}

		_, err = s.Reconcile(ctx, &ReconcileInput{
			Kind:           rec.kind(),
			Key:            repository.LookupKey{Reference: rec.reference()},
			Provider:       rec.provider(),
			ResultCode:     provider.ResultFailed,
			Source:         SourceJob,
			KeepReviewHold: true,
		})
		if err != nil && !errors.Is(err, ErrPaymentNotFound) {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunReviewReportBatch surfaces records held after an unknown result code.
// They are never resolved automatically.
func (s *PaymentService) RunReviewReportBatch(ctx context.Context) error {
	records, err := s.listRecords(
		func() ([]*entity.Payment, error) { return s.paymentRepo.ListHeldForReview(ctx, s.batchSize()) },
		func() ([]*entity.PendingPayment, error) { return s.pendingRepo.ListHeldForReview(ctx, s.batchSize()) },
	)
	if err != nil {
		return err
	}

	metrics.SetHeldForReview(len(records))
	for _, rec := range records {
		reason := ""
		if r := rec.reviewReason(); r != nil {
			reason = *r
		}
		s.logger.WithFields(logrus.Fields{
			"record_kind":       rec.kind(),
			"record_id":         rec.id(),
			"reference":         rec.reference(),
			"merchant_order_id": rec.merchantOrderID(),
			"provider":          rec.provider(),
			"review_reason":     reason,
			"error_kind":        ErrorKind(ErrUnknownResultCode),
		}).Warn("payment held for manual review")
	}

	return nil
}

func (s *PaymentService) listRecords(
	listPayments func() ([]*entity.Payment, error),
	listPending func() ([]*entity.PendingPayment, error),
) ([]*record, error) {
	payments, err := listPayments()
	if err != nil {
		return nil, err
	}
	pending, err := listPending()
	if err != nil {
		return nil, err
	}

	records := make([]*record, 0, len(payments)+len(pending))
	for _, item := range payments {
		if item != nil {
			records = append(records, &record{payment: item})
		}
	}
	for _, item := range pending {
		if item != nil {
			records = append(records, &record{pending: item})
		}
	}
	return records, nil
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
