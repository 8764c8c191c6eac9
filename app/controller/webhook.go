package controller

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/factory"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/service"
	"github.com/vibast-solutions/ms-go-course-payments/app/types"
)

const maxWebhookBody = 64 * 1024

var errWebhookBodyTooLarge = errors.New("webhook body exceeds size limit")

// WebhookController acknowledges every gateway callback with 200 so the
// gateway does not retry on our internal errors. Only a body that cannot
// be read as a form, or is over the size limit, gets a 400.
type WebhookController struct {
	paymentService paymentService
	logger         logrus.FieldLogger
}

func NewWebhookController(paymentService paymentService) *WebhookController {
	return &WebhookController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("webhook-controller"),
	}
}

func (c *WebhookController) HandleProviderCallback(ctx echo.Context) error {
	providerCode := strings.ToLower(strings.TrimSpace(ctx.Param("provider")))
	logger := factory.LoggerWithContext(c.logger, ctx).WithField("provider", providerCode)

	req, err := newCallbackRequest(ctx.Request())
	if err != nil {
		logger.WithError(err).Warn("webhook body could not be parsed")
		return ctx.JSON(http.StatusBadRequest, &types.WebhookAckResponse{
			Status:  "ERROR",
			Kind:    "invalid_request",
			Message: "malformed request body",
		})
	}

	result, err := c.paymentService.HandleProviderCallback(ctx.Request().Context(), providerCode, req)
	if err != nil {
		kind := service.ErrorKind(err)
		logger.WithError(err).WithField("error_kind", kind).Info("webhook acknowledged with error")
		return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{
			Status:  "ERROR",
			Kind:    kind,
			Message: ackMessage(kind),
		})
	}

	if result == nil {
		return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Status: "OK", Message: "ignored"})
	}
	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Status: "OK", Message: string(result.Outcome)})
}

func newCallbackRequest(httpReq *http.Request) (*provider.CallbackRequest, error) {
	body, err := io.ReadAll(io.LimitReader(httpReq.Body, maxWebhookBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxWebhookBody {
		return nil, errWebhookBodyTooLarge
	}

	req := &provider.CallbackRequest{
		Query:  httpReq.URL.Query(),
		Header: httpReq.Header.Clone(),
		Body:   body,
	}

	contentType := strings.ToLower(httpReq.Header.Get(echo.HeaderContentType))
	if strings.HasPrefix(contentType, echo.MIMEApplicationForm) {
		httpReq.Body = io.NopCloser(bytes.NewReader(body))
		if err := httpReq.ParseForm(); err != nil {
			return nil, err
		}
		req.Form = httpReq.PostForm
	}

	return req, nil
}

// ackMessage keeps internal detail out of the response; the log line
// carries the error itself.
func ackMessage(kind string) string {
	switch kind {
	case "authentication_failure":
		return "signature rejected"
	case "payment_not_found":
		return "payment not found"
	case "context_mismatch":
		return "callback does not match the payment"
	case "invalid_request":
		return "callback is incomplete"
	case "provider_unsupported":
		return "provider is not supported"
	default:
		return "callback not processed"
	}
}
