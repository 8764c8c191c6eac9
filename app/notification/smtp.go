package notification

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/vibast-solutions/ms-go-course-payments/config"
)

var ErrNoRecipient = errors.New("notification has no recipient")

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPNotifier struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

func (n *SMTPNotifier) PaymentCompleted(ctx context.Context, msg *PaymentNotification) error {
	to := strings.TrimSpace(msg.Email)
	if to == "" {
		return ErrNoRecipient
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	raw := buildMessage(n.cfg.From, to, subject(msg), body(msg))
	addr := net.JoinHostPort(n.cfg.Host, n.cfg.Port)

	// net/smtp has no context support; the send keeps running in the
	// background after ctx expires, but the caller is released.
	done := make(chan error, 1)
	go func() {
		done <- n.sendMail(addr, auth, n.cfg.From, []string{to}, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
