package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
)

// PaymentNotification describes a record that just transitioned into
// COMPLETED.
type PaymentNotification struct {
	RecordKind      string
	Reference       string
	MerchantOrderID string

	AccountID uint64
	CourseID  uint64
	Email     string
	Name      string

	AmountMinor int64
	Currency    string

	// NeedsRegistration is set for pay-first payments; the message then
	// asks the customer to finish creating an account.
	NeedsRegistration bool
	RegistrationURL   string
}

type Notifier interface {
	PaymentCompleted(ctx context.Context, n *PaymentNotification) error
}

func subject(n *PaymentNotification) string {
	if n.NeedsRegistration {
		return "Payment received: finish creating your account"
	}
	return "Payment received: your course is ready"
}

func body(n *PaymentNotification) string {
	var b strings.Builder
	name := strings.TrimSpace(n.Name)
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "We received your payment of %s %s for order %s.\r\n",
		provider.FormatAmount(n.AmountMinor), strings.ToUpper(n.Currency), n.MerchantOrderID)
	if n.NeedsRegistration {
		b.WriteString("Complete your registration to access the course")
		if n.RegistrationURL != "" {
			fmt.Fprintf(&b, ": %s", n.RegistrationURL)
		}
		b.WriteString(".\r\n")
	} else {
		b.WriteString("You are now enrolled and can start learning right away.\r\n")
	}
	fmt.Fprintf(&b, "\r\nPayment reference: %s\r\n", n.Reference)
	return b.String()
}
