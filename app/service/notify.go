package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/notification"
)

const defaultNotificationTimeout = 10 * time.Second

func (s *PaymentService) buildNotification(rec *record) *notification.PaymentNotification {
	n := &notification.PaymentNotification{
		RecordKind:      rec.kind(),
		Reference:       rec.reference(),
		MerchantOrderID: rec.merchantOrderID(),
		CourseID:        rec.courseID(),
		AmountMinor:     rec.amountMinor(),
		Currency:        rec.currency(),
	}
	if rec.isPending() {
		n.Email = rec.pending.Email
		n.Name = rec.pending.Name
		n.NeedsRegistration = true
		n.RegistrationURL = s.registrationURL(rec.reference())
	} else {
		n.AccountID = rec.payment.AccountID
	}
	return n
}

// notify runs after commit. Its failures are logged and counted only; the
// payment and enrollment are already durable.
func (s *PaymentService) notify(ctx context.Context, n *notification.PaymentNotification, accountID uint64) {
	timeout := s.paymentsCfg.NotificationTimeout
	if timeout <= 0 {
		timeout = defaultNotificationTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	logger := s.logger.WithFields(logrus.Fields{
		"reference":         n.Reference,
		"merchant_order_id": n.MerchantOrderID,
		"record_kind":       n.RecordKind,
	})

	if accountID > 0 {
		account, err := s.accountRepo.FindByID(ctx, accountID)
		if err != nil || account == nil {
			metrics.IncNotification("failed")
			logger.WithError(fmt.Errorf("%w: account %d not loaded: %v", ErrNotificationFailure, accountID, err)).
				WithField("error_kind", ErrorKind(ErrNotificationFailure)).
				Error("payment notification skipped")
			return
		}
		n.Email = account.Email
		n.Name = account.Name
	}

	if err := s.notifier.PaymentCompleted(ctx, n); err != nil {
		metrics.IncNotification("failed")
		logger.WithError(err).
			WithField("error_kind", ErrorKind(ErrNotificationFailure)).
			Error("payment notification failed")
		return
	}
	metrics.IncNotification("sent")
}
