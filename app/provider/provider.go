package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

const (
	CodeDuitku      = "duitku"
	CodeMercadoPago = "mercadopago"
)

// Normalised result codes shared by every gateway. Anything else is passed
// through verbatim and treated as unknown by the reconciliation engine.
const (
	ResultSuccess    = "00"
	ResultFailed     = "01"
	ResultInProgress = "IN_PROGRESS"
)

var (
	ErrInvalidSignature   = errors.New("invalid callback signature")
	ErrMalformedCallback  = errors.New("malformed callback")
	ErrInvalidContext     = errors.New("invalid callback context")
	ErrIgnoredCallback    = errors.New("callback topic is not handled")
	ErrProviderNotReady   = errors.New("provider is not configured")
	ErrTransactionUnknown = errors.New("transaction is unknown to the provider")
)

type Customer struct {
	Email string
	Name  string
	Phone string
}

type CheckoutInput struct {
	MerchantOrderID string
	AmountMinor     int64
	Currency        string
	PaymentMethod   string
	ProductDetails  string
	Customer        Customer
	Context         CallbackContext
	ExpiryMinutes   int
}

type CheckoutOutput struct {
	Reference  string
	PaymentURL *string
	VANumber   *string
	QRString   *string
	ExpiresAt  *time.Time
}

type CallbackRequest struct {
	Form   url.Values
	Query  url.Values
	Header http.Header
	Body   []byte
}

type Callback struct {
	Reference       string
	MerchantOrderID string
	ResultCode      string
	RawAmount       string
	Signature       string
	Payload         string

	// Context is nil when the callback does not embed one, e.g. when the
	// gateway only sends an id and the transaction is fetched from its API.
	Context *CallbackContext
}

type StatusQuery struct {
	Reference       string
	MerchantOrderID string
	Currency        string
}

type StatusResult struct {
	Reference  string
	ResultCode string
	RawAmount  string
}

type Provider interface {
	Code() string
	CreateCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error)
	VerifyAndParseCallback(ctx context.Context, req *CallbackRequest) (*Callback, error)
	CheckStatus(ctx context.Context, query *StatusQuery) (*StatusResult, error)
}
