package notification

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier only records the notification. Used when SMTP is not
// configured.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PaymentCompleted(_ context.Context, msg *PaymentNotification) error {
	n.logger.WithFields(logrus.Fields{
		"record_kind":        msg.RecordKind,
		"reference":          msg.Reference,
		"merchant_order_id":  msg.MerchantOrderID,
		"course_id":          msg.CourseID,
		"account_id":         msg.AccountID,
		"email":              msg.Email,
		"needs_registration": msg.NeedsRegistration,
	}).Info("payment_completed_notification")
	return nil
}
