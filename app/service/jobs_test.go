package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
)

func TestRunReconcileBatchPicksUpLostWebhooks(t *testing.T) {
	f := newServiceFixture(t)
	stale := f.seedPayment("JOB-1", "fakepay", entity.PaymentStatusPending)
	fresh := f.db.addPayment(&entity.Payment{
		AccountID: 1001, CourseID: 2001, Provider: "fakepay",
		Reference: "JOB-2", MerchantOrderID: "LMS-JOB-2",
		AmountMinor: 100000, Currency: "IDR", Status: entity.PaymentStatusPending,
		CreatedAt: f.now, UpdatedAt: f.now,
	})
	f.gateway.status = func(_ context.Context, query *provider.StatusQuery) (*provider.StatusResult, error) {
		if query.Reference != "JOB-1" {
			t.Errorf("fresh payment %q should not be polled", query.Reference)
		}
		return &provider.StatusResult{ResultCode: provider.ResultSuccess}, nil
	}

	if err := f.svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("reconcile batch failed: %v", err)
	}
	if got := f.db.payment(stale.ID).Status; got != entity.PaymentStatusCompleted {
		t.Fatalf("expected stale payment completed, got %s", got)
	}
	if got := f.db.payment(fresh.ID).Status; got != entity.PaymentStatusPending {
		t.Fatalf("expected fresh payment untouched, got %s", got)
	}
	if f.db.enrollmentCount() != 1 {
		t.Fatalf("expected enrollment from reconciled payment")
	}
}

func TestRunExpirePendingBatch(t *testing.T) {
	f := newServiceFixture(t)
	old := f.now.Add(-48 * time.Hour)
	reason := "unknown result code \"77\" from webhook"

	expired := f.db.addPayment(&entity.Payment{
		AccountID: 1001, CourseID: 2001, Provider: "fakepay",
		Reference: "EXP-1", MerchantOrderID: "LMS-EXP-1",
		AmountMinor: 100000, Currency: "IDR", Status: entity.PaymentStatusPending,
		ExpiresAt: &old, CreatedAt: old, UpdatedAt: old,
	})
	held := f.db.addPayment(&entity.Payment{
		AccountID: 1001, CourseID: 2001, Provider: "fakepay",
		Reference: "EXP-2", MerchantOrderID: "LMS-EXP-2",
		AmountMinor: 100000, Currency: "IDR", Status: entity.PaymentStatusPending,
		ReviewReason: &reason, ExpiresAt: &old, CreatedAt: old, UpdatedAt: old,
	})
	pending := f.db.addPending(&entity.PendingPayment{
		Email: "payfirst@example.com", CourseID: 2001, Provider: "fakepay",
		Reference: "EXP-3", MerchantOrderID: "LMS-EXP-3",
		AmountMinor: 100000, Currency: "IDR", Status: entity.PaymentStatusPending,
		CreatedAt: old, UpdatedAt: old,
	})

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("expire batch failed: %v", err)
	}
	if got := f.db.payment(expired.ID).Status; got != entity.PaymentStatusFailed {
		t.Fatalf("expected expired payment failed, got %s", got)
	}
	if got := f.db.pendingByID(pending.ID).Status; got != entity.PaymentStatusFailed {
		t.Fatalf("expected expired pending payment failed, got %s", got)
	}
	stillHeld := f.db.payment(held.ID)
	if stillHeld.Status != entity.PaymentStatusPending || stillHeld.ReviewReason == nil {
		t.Fatalf("held payment must never be auto-failed: %+v", stillHeld)
	}
}

func TestRunExpirePendingBatchCompletesWhenProviderSaysPaid(t *testing.T) {
	f := newServiceFixture(t)
	old := f.now.Add(-48 * time.Hour)
	payment := f.db.addPayment(&entity.Payment{
		AccountID: 1001, CourseID: 2001, Provider: "fakepay",
		Reference: "EXP-4", MerchantOrderID: "LMS-EXP-4",
		AmountMinor: 100000, Currency: "IDR", Status: entity.PaymentStatusPending,
		CreatedAt: old, UpdatedAt: old,
	})
	f.gateway.status = func(context.Context, *provider.StatusQuery) (*provider.StatusResult, error) {
		return &provider.StatusResult{ResultCode: provider.ResultSuccess}, nil
	}

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("expire batch failed: %v", err)
	}
	if got := f.db.payment(payment.ID).Status; got != entity.PaymentStatusCompleted {
		t.Fatalf("paid payment must not be expired, got %s", got)
	}
}

func TestRunExpirePendingBatchSkipsWhenProviderDown(t *testing.T) {
	f := newServiceFixture(t)
	old := f.now.Add(-48 * time.Hour)
	payment := f.db.addPayment(&entity.Payment{
		AccountID: 1001, CourseID: 2001, Provider: "fakepay",
		Reference: "EXP-5", MerchantOrderID: "LMS-EXP-5",
		AmountMinor: 100000, Currency: "IDR", Status: entity.PaymentStatusPending,
		CreatedAt: old, UpdatedAt: old,
	})
	f.gateway.status = func(context.Context, *provider.StatusQuery) (*provider.StatusResult, error) {
		return nil, errors.New("gateway 503")
	}

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("expire batch failed: %v", err)
	}
	if got := f.db.payment(payment.ID).Status; got != entity.PaymentStatusPending {
		t.Fatalf("unconfirmed payment must stay pending, got %s", got)
	}
}

func TestRunReviewReportBatch(t *testing.T) {
	f := newServiceFixture(t)
	reason := "unknown result code \"77\" from poll"
	held := f.db.addPayment(&entity.Payment{
		AccountID: 1001, CourseID: 2001, Provider: "fakepay",
		Reference: "REV-1", MerchantOrderID: "LMS-REV-1",
		Status: entity.PaymentStatusPending, ReviewReason: &reason,
	})

	if err := f.svc.RunReviewReportBatch(context.Background()); err != nil {
		t.Fatalf("review report failed: %v", err)
	}
	if got := f.db.payment(held.ID).Status; got != entity.PaymentStatusPending {
		t.Fatalf("review report must not change status, got %s", got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrAuthenticationFailure, "authentication_failure"},
		{ErrPaymentNotFound, "payment_not_found"},
		{ErrContextMismatch, "context_mismatch"},
		{ErrUnknownResultCode, "unknown_result_code"},
		{ErrProviderUnavailable, "provider_unavailable"},
		{ErrNotificationFailure, "notification_failure"},
		{mapCallbackError(provider.ErrInvalidSignature), "authentication_failure"},
		{mapCallbackError(provider.ErrMalformedCallback), "invalid_request"},
		{mapCallbackError(errors.New("boom")), "provider_unavailable"},
		{errors.New("boom"), "internal_error"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
	if mapCallbackError(provider.ErrIgnoredCallback) != nil {
		t.Fatalf("ignored callbacks must map to nil")
	}
}
