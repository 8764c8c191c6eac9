package types

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewCreateCheckoutRequestFromContextNormalizes(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/checkout", bytes.NewBufferString(`{"course_id":12,"provider":" Duitku ","payment_method":"va","email":" Buyer@Example.com ","name":" Buyer "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	parsed, err := NewCreateCheckoutRequestFromContext(e.NewContext(req, rec))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetCourseId() != 12 || parsed.GetProvider() != "duitku" || parsed.GetPaymentMethod() != "VA" {
		t.Fatalf("unexpected request: %+v", parsed)
	}
	if parsed.GetEmail() != "buyer@example.com" || parsed.GetName() != "Buyer" {
		t.Fatalf("expected trimmed customer fields, got %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestCreateCheckoutValidate(t *testing.T) {
	if err := (&CreateCheckoutRequest{}).Validate(); err == nil {
		t.Fatal("expected course_id validation error")
	}
	var nilReq *CreateCheckoutRequest
	if nilReq.GetCourseId() != 0 || nilReq.GetEmail() != "" {
		t.Fatal("expected nil-safe getters")
	}
}

func TestPaymentStatusRequests(t *testing.T) {
	e := echo.New()

	ctx := e.NewContext(httptest.NewRequest("GET", "/payments/42/status", nil), httptest.NewRecorder())
	ctx.SetParamNames("id")
	ctx.SetParamValues("42")
	byID, err := NewGetPaymentStatusRequestFromContext(ctx)
	if err != nil || byID.GetId() != 42 {
		t.Fatalf("expected id 42, got %+v err=%v", byID, err)
	}

	ctx = e.NewContext(httptest.NewRequest("GET", "/payments/abc/status", nil), httptest.NewRecorder())
	ctx.SetParamNames("id")
	ctx.SetParamValues("abc")
	if _, err := NewGetPaymentStatusRequestFromContext(ctx); err == nil {
		t.Fatal("expected parse error for non-numeric id")
	}

	ctx = e.NewContext(httptest.NewRequest("GET", "/payments/status?merchantOrderId=LMS-1", nil), httptest.NewRecorder())
	lookup, _ := NewPaymentStatusLookupRequestFromContext(ctx)
	if lookup.GetMerchantOrderId() != "LMS-1" || lookup.Validate() != nil {
		t.Fatalf("unexpected lookup: %+v", lookup)
	}

	ctx = e.NewContext(httptest.NewRequest("GET", "/payments/status", nil), httptest.NewRecorder())
	lookup, _ = NewPaymentStatusLookupRequestFromContext(ctx)
	if err := lookup.Validate(); err == nil {
		t.Fatal("expected validation error for empty lookup")
	}
}

func TestCompleteRegistrationValidate(t *testing.T) {
	req := &CompleteRegistrationRequest{Reference: "REF-1", Email: "a@example.com", Password: "short"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected password validation error")
	}
	req.Password = "longenough"
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewCheckEnrollmentRequestFromContext(t *testing.T) {
	e := echo.New()

	ctx := e.NewContext(httptest.NewRequest("GET", "/internal/enrollments?account_id=3&course_id=9", nil), httptest.NewRecorder())
	req, err := NewCheckEnrollmentRequestFromContext(ctx)
	if err != nil || req.GetAccountId() != 3 || req.GetCourseId() != 9 {
		t.Fatalf("unexpected request %+v err=%v", req, err)
	}

	ctx = e.NewContext(httptest.NewRequest("GET", "/internal/enrollments?account_id=x&course_id=9", nil), httptest.NewRecorder())
	if _, err := NewCheckEnrollmentRequestFromContext(ctx); err == nil {
		t.Fatal("expected parse error")
	}

	if err := (&CheckEnrollmentRequest{AccountId: 3}).Validate(); err == nil {
		t.Fatal("expected course_id validation error")
	}
}
