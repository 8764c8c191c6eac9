package provider

import (
	"strings"
	"testing"
)

func TestVerifyCallbackSignatureAcceptsValidSignature(t *testing.T) {
	sig := callbackSignature("D1234", "100000", "LMS-20260101120000-ABCDEFGHJK", "secret-key")
	if !VerifyCallbackSignature("D1234", "100000", "LMS-20260101120000-ABCDEFGHJK", "secret-key", sig) {
		t.Fatal("expected valid signature to verify")
	}
	if !VerifyCallbackSignature("D1234", "100000", "LMS-20260101120000-ABCDEFGHJK", "secret-key", strings.ToUpper(sig)) {
		t.Fatal("expected upper-case hex signature to verify")
	}
}

func TestVerifyCallbackSignatureRejectsTamperedFields(t *testing.T) {
	sig := callbackSignature("D1234", "100000", "ORDER-1", "secret-key")

	if VerifyCallbackSignature("D1234", "1000000", "ORDER-1", "secret-key", sig) {
		t.Fatal("expected tampered amount to be rejected")
	}
	if VerifyCallbackSignature("D1234", "100000", "ORDER-2", "secret-key", sig) {
		t.Fatal("expected tampered merchant order id to be rejected")
	}
	if VerifyCallbackSignature("D9999", "100000", "ORDER-1", "secret-key", sig) {
		t.Fatal("expected tampered merchant code to be rejected")
	}
	if VerifyCallbackSignature("D1234", "100000", "ORDER-1", "other-key", sig) {
		t.Fatal("expected wrong key to be rejected")
	}
	if VerifyCallbackSignature("D1234", "100000.00", "ORDER-1", "secret-key", sig) {
		t.Fatal("expected a differently formatted amount to be rejected")
	}
}

func TestVerifyCallbackSignatureRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name, code, amount, order, key, sig string
	}{
		{"empty signature", "D1234", "100", "O-1", "k", ""},
		{"non hex", "D1234", "100", "O-1", "k", "zzzz"},
		{"short", "D1234", "100", "O-1", "k", "abcd"},
		{"empty key", "D1234", "100", "O-1", "", callbackSignature("D1234", "100", "O-1", "")},
		{"empty amount", "D1234", "", "O-1", "k", callbackSignature("D1234", "", "O-1", "k")},
	}
	for _, tc := range cases {
		if VerifyCallbackSignature(tc.code, tc.amount, tc.order, tc.key, tc.sig) {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}
}
