package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

type MercadoPagoConfig struct {
	AccessToken     string
	WebhookSecret   string
	NotificationURL string
	BackURL         string
	ExpiryMinutes   int
}

type mercadoPagoPayments interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
	Search(ctx context.Context, request payment.SearchRequest) (*payment.SearchResponse, error)
}

type mercadoPagoPreferences interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type MercadoPagoProvider struct {
	cfg         MercadoPagoConfig
	payments    mercadoPagoPayments
	preferences mercadoPagoPreferences
	now         func() time.Time
}

func NewMercadoPagoProvider(cfg MercadoPagoConfig) (*MercadoPagoProvider, error) {
	p := &MercadoPagoProvider{cfg: cfg, now: time.Now}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return p, nil
	}

	sdkCfg, err := mpconfig.New(cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	p.payments = payment.NewClient(sdkCfg)
	p.preferences = preference.NewClient(sdkCfg)
	return p, nil
}

func (p *MercadoPagoProvider) Code() string {
	return CodeMercadoPago
}

func (p *MercadoPagoProvider) CreateCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	if p.preferences == nil {
		return nil, fmt.Errorf("%w: mercadopago access token", ErrProviderNotReady)
	}

	request := preference.Request{
		Items: []preference.ItemRequest{
			{
				Title:      input.ProductDetails,
				Quantity:   1,
				UnitPrice:  MajorUnits(input.AmountMinor, input.Currency),
				CurrencyID: strings.ToUpper(input.Currency),
			},
		},
		Payer: &preference.PayerRequest{
			Email: input.Customer.Email,
			Name:  input.Customer.Name,
		},
		ExternalReference: input.MerchantOrderID,
		NotificationURL:   p.cfg.NotificationURL,
	}
	if backURL := strings.TrimSpace(p.cfg.BackURL); backURL != "" {
		request.AutoReturn = "approved"
		request.BackURLs = &preference.BackURLsRequest{
			Success: backURL,
			Failure: backURL,
			Pending: backURL,
		}
	}

	result, err := p.preferences.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("mercadopago create preference: %w", err)
	}

	expiry := input.ExpiryMinutes
	if expiry <= 0 {
		expiry = p.cfg.ExpiryMinutes
	}
	var expiresAt *time.Time
	if expiry > 0 {
		at := p.now().UTC().Add(time.Duration(expiry) * time.Minute)
		expiresAt = &at
	}

	return &CheckoutOutput{
		Reference:  result.ID,
		PaymentURL: optionalString(result.InitPoint),
		ExpiresAt:  expiresAt,
	}, nil
}

type mercadoPagoNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (p *MercadoPagoProvider) VerifyAndParseCallback(ctx context.Context, req *CallbackRequest) (*Callback, error) {
	if p.payments == nil {
		return nil, fmt.Errorf("%w: mercadopago access token", ErrProviderNotReady)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrMalformedCallback)
	}

	var notification mercadoPagoNotification
	if len(req.Body) > 0 {
		if err := json.Unmarshal(req.Body, &notification); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
	}

	dataID := strings.TrimSpace(req.Query.Get("data.id"))
	if dataID == "" {
		dataID = strings.TrimSpace(notification.Data.ID)
	}
	topic := strings.TrimSpace(req.Query.Get("type"))
	if topic == "" {
		topic = strings.TrimSpace(notification.Type)
	}

	signature := req.Header.Get("x-signature")
	if !ValidateMercadoPagoSignature(signature, req.Header.Get("x-request-id"), dataID, p.cfg.WebhookSecret) {
		return nil, ErrInvalidSignature
	}
	if topic != "payment" {
		return nil, ErrIgnoredCallback
	}

	paymentID, err := strconv.Atoi(dataID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payment id %q", ErrMalformedCallback, dataID)
	}

	item, err := p.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("mercadopago get payment: %w", err)
	}
	if strings.TrimSpace(item.ExternalReference) == "" {
		return nil, fmt.Errorf("%w: payment %d has no external reference", ErrMalformedCallback, paymentID)
	}

	return &Callback{
		MerchantOrderID: strings.TrimSpace(item.ExternalReference),
		ResultCode:      mercadoPagoStatusToResult(item.Status),
		RawAmount:       FormatAmount(MinorUnits(item.TransactionAmount, item.CurrencyID)),
		Signature:       signature,
		Payload:         string(req.Body),
	}, nil
}

func (p *MercadoPagoProvider) CheckStatus(ctx context.Context, query *StatusQuery) (*StatusResult, error) {
	if p.payments == nil {
		return nil, fmt.Errorf("%w: mercadopago access token", ErrProviderNotReady)
	}

	result, err := p.payments.Search(ctx, payment.SearchRequest{
		Limit:   10,
		Filters: map[string]string{"external_reference": query.MerchantOrderID},
	})
	if err != nil {
		return nil, fmt.Errorf("mercadopago search payments: %w", err)
	}
	if result == nil || len(result.Results) == 0 {
		return &StatusResult{Reference: query.Reference, ResultCode: ResultInProgress}, nil
	}

	best := result.Results[0]
	bestRank := mercadoPagoResultRank(mercadoPagoStatusToResult(best.Status))
	for _, item := range result.Results[1:] {
		if rank := mercadoPagoResultRank(mercadoPagoStatusToResult(item.Status)); rank > bestRank {
			best, bestRank = item, rank
		}
	}

	return &StatusResult{
		Reference:  query.Reference,
		ResultCode: mercadoPagoStatusToResult(best.Status),
		RawAmount:  FormatAmount(MinorUnits(best.TransactionAmount, best.CurrencyID)),
	}, nil
}

func mercadoPagoStatusToResult(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return ResultSuccess
	case "rejected", "cancelled", "refunded", "charged_back":
		return ResultFailed
	case "pending", "in_process", "authorized", "in_mediation":
		return ResultInProgress
	default:
		return status
	}
}

// One buyer can make several attempts against one preference; any approved
// attempt settles the order.
func mercadoPagoResultRank(result string) int {
	switch result {
	case ResultSuccess:
		return 3
	case ResultInProgress:
		return 2
	case ResultFailed:
		return 1
	default:
		return 0
	}
}

// ValidateMercadoPagoSignature checks the x-signature header
// ("ts=<ts>,v1=<hex>") against HMAC-SHA256 of
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func ValidateMercadoPagoSignature(xSignature, xRequestID, dataID, secret string) bool {
	if xSignature == "" || secret == "" {
		return false
	}

	ts, hash := parseMercadoPagoSignatureHeader(xSignature)
	if ts == "" || hash == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(mercadoPagoManifest(dataID, xRequestID, ts)))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(strings.ToLower(hash)), []byte(expected))
}

func parseMercadoPagoSignatureHeader(header string) (ts, hash string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			hash = strings.TrimSpace(value)
		}
	}
	return ts, hash
}

func mercadoPagoManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}
