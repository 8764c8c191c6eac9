package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type DuitkuConfig struct {
	MerchantCode  string
	APIKey        string
	BaseURL       string
	CallbackURL   string
	ReturnURL     string
	ExpiryMinutes int
	HTTPTimeout   time.Duration
}

type DuitkuProvider struct {
	cfg    DuitkuConfig
	client *http.Client
	now    func() time.Time
}

func NewDuitkuProvider(cfg DuitkuConfig) *DuitkuProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.ExpiryMinutes <= 0 {
		cfg.ExpiryMinutes = 60
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return &DuitkuProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

func (p *DuitkuProvider) Code() string {
	return CodeDuitku
}

type duitkuInquiryRequest struct {
	MerchantCode     string `json:"merchantCode"`
	PaymentAmount    int64  `json:"paymentAmount"`
	PaymentMethod    string `json:"paymentMethod"`
	MerchantOrderID  string `json:"merchantOrderId"`
	ProductDetails   string `json:"productDetails"`
	AdditionalParam  string `json:"additionalParam"`
	MerchantUserInfo string `json:"merchantUserInfo,omitempty"`
	CustomerVaName   string `json:"customerVaName"`
	Email            string `json:"email"`
	PhoneNumber      string `json:"phoneNumber,omitempty"`
	CallbackURL      string `json:"callbackUrl"`
	ReturnURL        string `json:"returnUrl"`
	Signature        string `json:"signature"`
	ExpiryPeriod     int    `json:"expiryPeriod"`
}

type duitkuInquiryResponse struct {
	MerchantCode  string `json:"merchantCode"`
	Reference     string `json:"reference"`
	PaymentURL    string `json:"paymentUrl"`
	VANumber      string `json:"vaNumber"`
	QRString      string `json:"qrString"`
	Amount        string `json:"amount"`
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

type duitkuStatusRequest struct {
	MerchantCode    string `json:"merchantCode"`
	MerchantOrderID string `json:"merchantOrderId"`
	Signature       string `json:"signature"`
}

type duitkuStatusResponse struct {
	MerchantOrderID string `json:"merchantOrderId"`
	Reference       string `json:"reference"`
	Amount          string `json:"amount"`
	StatusCode      string `json:"statusCode"`
	StatusMessage   string `json:"statusMessage"`
}

func (p *DuitkuProvider) CreateCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	if err := p.ensureConfigured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.cfg.CallbackURL) == "" {
		return nil, fmt.Errorf("%w: duitku callback url", ErrProviderNotReady)
	}

	expiry := input.ExpiryMinutes
	if expiry <= 0 {
		expiry = p.cfg.ExpiryMinutes
	}

	reqBody := &duitkuInquiryRequest{
		MerchantCode:     p.cfg.MerchantCode,
		PaymentAmount:    input.AmountMinor,
		PaymentMethod:    input.PaymentMethod,
		MerchantOrderID:  input.MerchantOrderID,
		ProductDetails:   input.ProductDetails,
		AdditionalParam:  input.Context.Encode(),
		MerchantUserInfo: input.Customer.Email,
		CustomerVaName:   input.Customer.Name,
		Email:            input.Customer.Email,
		PhoneNumber:      input.Customer.Phone,
		CallbackURL:      p.cfg.CallbackURL,
		ReturnURL:        p.cfg.ReturnURL,
		Signature:        inquirySignature(p.cfg.MerchantCode, input.MerchantOrderID, input.AmountMinor, p.cfg.APIKey),
		ExpiryPeriod:     expiry,
	}

	var out duitkuInquiryResponse
	if err := p.postJSON(ctx, "/v2/inquiry", reqBody, &out); err != nil {
		return nil, err
	}
	if out.StatusCode != ResultSuccess || strings.TrimSpace(out.Reference) == "" {
		return nil, fmt.Errorf("duitku inquiry rejected: status=%s message=%s", out.StatusCode, out.StatusMessage)
	}

	expiresAt := p.now().UTC().Add(time.Duration(expiry) * time.Minute)
	return &CheckoutOutput{
		Reference:  strings.TrimSpace(out.Reference),
		PaymentURL: optionalString(out.PaymentURL),
		VANumber:   optionalString(out.VANumber),
		QRString:   optionalString(out.QRString),
		ExpiresAt:  &expiresAt,
	}, nil
}

func (p *DuitkuProvider) VerifyAndParseCallback(_ context.Context, req *CallbackRequest) (*Callback, error) {
	if err := p.ensureConfigured(); err != nil {
		return nil, err
	}
	if req == nil || req.Form == nil {
		return nil, fmt.Errorf("%w: empty form", ErrMalformedCallback)
	}

	form := req.Form
	merchantCode := strings.TrimSpace(form.Get("merchantCode"))
	amount := strings.TrimSpace(form.Get("amount"))
	merchantOrderID := strings.TrimSpace(form.Get("merchantOrderId"))
	signature := strings.TrimSpace(form.Get("signature"))

	if merchantCode != p.cfg.MerchantCode {
		return nil, fmt.Errorf("%w: merchant code mismatch", ErrInvalidSignature)
	}
	if !VerifyCallbackSignature(merchantCode, amount, merchantOrderID, p.cfg.APIKey, signature) {
		return nil, ErrInvalidSignature
	}

	reference := strings.TrimSpace(form.Get("reference"))
	resultCode := strings.TrimSpace(form.Get("resultCode"))
	if reference == "" || resultCode == "" {
		return nil, fmt.Errorf("%w: reference and resultCode are required", ErrMalformedCallback)
	}

	callbackCtx, err := ParseCallbackContext(form.Get("additionalParam"))
	if err != nil {
		return nil, err
	}

	return &Callback{
		Reference:       reference,
		MerchantOrderID: merchantOrderID,
		ResultCode:      resultCode,
		RawAmount:       amount,
		Signature:       signature,
		Payload:         form.Encode(),
		Context:         callbackCtx,
	}, nil
}

func (p *DuitkuProvider) CheckStatus(ctx context.Context, query *StatusQuery) (*StatusResult, error) {
	if err := p.ensureConfigured(); err != nil {
		return nil, err
	}
	merchantOrderID := strings.TrimSpace(query.MerchantOrderID)
	if merchantOrderID == "" {
		return nil, errors.New("duitku status check requires a merchant order id")
	}

	reqBody := &duitkuStatusRequest{
		MerchantCode:    p.cfg.MerchantCode,
		MerchantOrderID: merchantOrderID,
		Signature:       statusSignature(p.cfg.MerchantCode, merchantOrderID, p.cfg.APIKey),
	}

	var out duitkuStatusResponse
	if err := p.postJSON(ctx, "/transactionStatus", reqBody, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.StatusCode) == "" {
		return nil, fmt.Errorf("%w: duitku order %s", ErrTransactionUnknown, merchantOrderID)
	}

	return &StatusResult{
		Reference:  strings.TrimSpace(out.Reference),
		ResultCode: duitkuStatusToResult(strings.TrimSpace(out.StatusCode)),
		RawAmount:  strings.TrimSpace(out.Amount),
	}, nil
}

// transactionStatus uses 01 for "still processing" and 02 for failure,
// unlike the callback where 01 is a failure.
func duitkuStatusToResult(statusCode string) string {
	switch statusCode {
	case "00":
		return ResultSuccess
	case "01":
		return ResultInProgress
	case "02":
		return ResultFailed
	default:
		return statusCode
	}
}

func (p *DuitkuProvider) ensureConfigured() error {
	if strings.TrimSpace(p.cfg.MerchantCode) == "" || strings.TrimSpace(p.cfg.APIKey) == "" {
		return fmt.Errorf("%w: duitku merchant code or api key", ErrProviderNotReady)
	}
	return nil
}

func (p *DuitkuProvider) postJSON(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("duitku %s failed: status=%d body=%s", path, resp.StatusCode, string(respBody))
	}

	return json.Unmarshal(respBody, out)
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
