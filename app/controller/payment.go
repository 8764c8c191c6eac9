package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/auth"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/factory"
	"github.com/vibast-solutions/ms-go-course-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/service"
	"github.com/vibast-solutions/ms-go-course-payments/app/types"
)

type paymentService interface {
	CreateCheckout(ctx context.Context, account *entity.Account, req service.CheckoutRequest) (*service.CheckoutResult, error)
	PollAndReconcile(ctx context.Context, lookup *service.StatusLookup) (*service.PaymentStatusView, error)
	CompleteRegistration(ctx context.Context, req service.RegistrationRequest) (*service.RegistrationResult, error)
	HandleProviderCallback(ctx context.Context, providerCode string, req *provider.CallbackRequest) (*service.ReconcileResult, error)
	IsEnrolled(ctx context.Context, accountID, courseID uint64) (bool, error)
}

type PaymentController struct {
	paymentService paymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService paymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreateCheckout(ctx echo.Context) error {
	req, err := types.NewCreateCheckoutRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body", "invalid_request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error(), "invalid_request")
	}

	result, err := c.paymentService.CreateCheckout(ctx.Request().Context(), auth.AccountFromContext(ctx), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Create checkout failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.CheckoutToResponse(result))
}

// GetPaymentStatus serves the signed-in owner of a registered payment.
func (c *PaymentController) GetPaymentStatus(ctx echo.Context) error {
	req, err := types.NewGetPaymentStatusRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid payment id", "invalid_request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error(), "invalid_request")
	}

	account := auth.AccountFromContext(ctx)
	if account == nil {
		return writeError(ctx, http.StatusUnauthorized, "authentication required", "authentication_required")
	}

	view, err := c.paymentService.PollAndReconcile(ctx.Request().Context(), &service.StatusLookup{
		PaymentID: req.GetId(),
		AccountID: account.ID,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Get payment status failed")
	}

	return ctx.JSON(http.StatusOK, mapper.StatusViewToResponse(view))
}

// LookupPaymentStatus serves the gateway return page. Pay-first payments
// are visible to anyone holding the reference; registered payments only
// to their owner.
func (c *PaymentController) LookupPaymentStatus(ctx echo.Context) error {
	req, err := types.NewPaymentStatusLookupRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request", "invalid_request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error(), "invalid_request")
	}

	lookup := &service.StatusLookup{
		Reference:       req.GetReference(),
		MerchantOrderID: req.GetMerchantOrderId(),
	}
	if account := auth.AccountFromContext(ctx); account != nil {
		lookup.AccountID = account.ID
	}

	view, err := c.paymentService.PollAndReconcile(ctx.Request().Context(), lookup)
	if err != nil {
		return c.writeServiceError(ctx, err, "Lookup payment status failed")
	}

	return ctx.JSON(http.StatusOK, mapper.StatusViewToResponse(view))
}

func (c *PaymentController) CompleteRegistration(ctx echo.Context) error {
	req, err := types.NewCompleteRegistrationRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body", "invalid_request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error(), "invalid_request")
	}

	result, err := c.paymentService.CompleteRegistration(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Complete registration failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.RegistrationToResponse(result))
}

func (c *PaymentController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	kind := service.ErrorKind(err)
	status := statusForError(err)
	switch status {
	case http.StatusBadGateway:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("error_kind", kind).Warn(logMessage)
		return writeError(ctx, status, "payment provider unavailable, try again shortly", kind)
	case http.StatusInternalServerError:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("error_kind", kind).Error(logMessage)
		return writeError(ctx, status, "internal server error", kind)
	}
	return writeError(ctx, status, err.Error(), kind)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProviderUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrContextMismatch):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPaymentNotFound), errors.Is(err, service.ErrCourseNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyEnrolled), errors.Is(err, service.ErrPaymentAlreadyExists), errors.Is(err, service.ErrPaymentNotCompleted):
		return http.StatusConflict
	case errors.Is(err, service.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx echo.Context, statusCode int, message, kind string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message, Kind: kind})
}
