package mapper

import (
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/service"
)

func TestStatusViewToResponse(t *testing.T) {
	url := "https://pay.example/1"
	expires := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("WIB", 7*3600))

	resp := StatusViewToResponse(&service.PaymentStatusView{
		ID:             9,
		Kind:           entity.RecordKindPayment,
		Reference:      "REF-9",
		Status:         entity.PaymentStatusPending,
		PaymentURL:     &url,
		ExpiresAt:      &expires,
		NeedsPayment:   true,
		Stale:          true,
		DegradedReason: service.DegradedProviderUnavailable,
	})
	if resp.Status != "PENDING" || resp.PaymentUrl != url || !resp.Stale {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ExpiresAt != "2026-05-01T05:00:00Z" {
		t.Fatalf("expected UTC expiry, got %q", resp.ExpiresAt)
	}
	if resp.VaNumber != "" {
		t.Fatalf("expected empty va number, got %q", resp.VaNumber)
	}
	if StatusViewToResponse(nil) != nil {
		t.Fatal("expected nil for nil view")
	}
}

func TestRegistrationToResponseOmitsZeroExpiry(t *testing.T) {
	resp := RegistrationToResponse(&service.RegistrationResult{AccountID: 1, Enrolled: true})
	if resp.ExpiresAt != "" || !resp.Enrolled {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
