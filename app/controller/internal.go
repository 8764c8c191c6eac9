package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/factory"
	"github.com/vibast-solutions/ms-go-course-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-course-payments/app/service"
	"github.com/vibast-solutions/ms-go-course-payments/app/types"
)

// InternalController serves other services behind internal API-key auth.
// Lookups are trusted and skip the ownership check.
type InternalController struct {
	paymentService paymentService
	logger         logrus.FieldLogger
}

func NewInternalController(paymentService paymentService) *InternalController {
	return &InternalController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("internal-controller"),
	}
}

func (c *InternalController) GetPaymentStatus(ctx echo.Context) error {
	req, err := types.NewPaymentStatusLookupRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request", "invalid_request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error(), "invalid_request")
	}

	view, err := c.paymentService.PollAndReconcile(ctx.Request().Context(), &service.StatusLookup{
		Reference:       req.GetReference(),
		MerchantOrderID: req.GetMerchantOrderId(),
		Trusted:         true,
	})
	if err != nil {
		return c.writeServiceError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, mapper.StatusViewToResponse(view))
}

func (c *InternalController) CheckEnrollment(ctx echo.Context) error {
	req, err := types.NewCheckEnrollmentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error(), "invalid_request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error(), "invalid_request")
	}

	enrolled, err := c.paymentService.IsEnrolled(ctx.Request().Context(), req.GetAccountId(), req.GetCourseId())
	if err != nil {
		return c.writeServiceError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, &types.CheckEnrollmentResponse{
		AccountId: req.GetAccountId(),
		CourseId:  req.GetCourseId(),
		Enrolled:  enrolled,
	})
}

func (c *InternalController) writeServiceError(ctx echo.Context, err error) error {
	kind := service.ErrorKind(err)
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("error_kind", kind).Error("Internal request failed")
		return writeError(ctx, status, "internal server error", kind)
	}
	return writeError(ctx, status, err.Error(), kind)
}
