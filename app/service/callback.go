package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
)

const maxCallbackPayload = 16 * 1024

// HandleProviderCallback verifies a gateway callback and feeds it into the
// reconciliation engine. A nil result with a nil error means the callback
// was acknowledged without being applied (a topic the service ignores).
// Nothing is written for callbacks that fail verification or match no
// record.
func (s *PaymentService) HandleProviderCallback(ctx context.Context, providerCode string, req *provider.CallbackRequest) (*ReconcileResult, error) {
	code := strings.ToLower(strings.TrimSpace(providerCode))
	logger := s.logger.WithField("provider", code)

	providerClient, err := s.providerReg.Get(code)
	if err != nil {
		metrics.IncCallback(code, "unsupported")
		return nil, ErrProviderUnsupported
	}

	callback, err := providerClient.VerifyAndParseCallback(ctx, req)
	if err != nil {
		mapped := mapCallbackError(err)
		if mapped == nil {
			metrics.IncCallback(code, "ignored")
			logger.WithError(err).Debug("callback ignored")
			return nil, nil
		}
		metrics.IncCallback(code, ErrorKind(mapped))
		logger.WithError(err).WithField("error_kind", ErrorKind(mapped)).Warn("callback rejected")
		return nil, mapped
	}

	logger = logger.WithFields(logrus.Fields{
		"reference":         callback.Reference,
		"merchant_order_id": callback.MerchantOrderID,
		"result_code":       callback.ResultCode,
	})

	result, err := s.Reconcile(ctx, &ReconcileInput{
		Key: repository.LookupKey{
			Reference:       callback.Reference,
			MerchantOrderID: callback.MerchantOrderID,
		},
		Provider:   code,
		ResultCode: callback.ResultCode,
		RawAmount:  callback.RawAmount,
		Context:    callback.Context,
		Source:     SourceWebhook,
		Callback: &entity.PaymentCallback{
			Provider:        code,
			Reference:       callback.Reference,
			MerchantOrderID: callback.MerchantOrderID,
			ResultCode:      callback.ResultCode,
			Signature:       callback.Signature,
			Payload:         truncate(callback.Payload, maxCallbackPayload),
		},
	})
	if err != nil {
		metrics.IncCallback(code, ErrorKind(err))
		entry := logger.WithError(err).WithField("error_kind", ErrorKind(err))
		switch {
		case errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrContextMismatch):
			entry.Warn("callback not applied")
		default:
			entry.Error("callback reconciliation failed")
		}
		return nil, err
	}

	metrics.IncCallback(code, "ok")
	return result, nil
}

func mapCallbackError(err error) error {
	switch {
	case errors.Is(err, provider.ErrIgnoredCallback):
		return nil
	case errors.Is(err, provider.ErrInvalidSignature):
		return fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	case errors.Is(err, provider.ErrInvalidContext):
		return fmt.Errorf("%w: %v", ErrContextMismatch, err)
	case errors.Is(err, provider.ErrMalformedCallback):
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	case errors.Is(err, provider.ErrProviderNotReady):
		return fmt.Errorf("%w: %v", ErrProviderUnsupported, err)
	default:
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
}
