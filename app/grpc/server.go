package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-course-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-course-payments/app/service"
	"github.com/vibast-solutions/ms-go-course-payments/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type paymentService interface {
	PollAndReconcile(ctx context.Context, lookup *service.StatusLookup) (*service.PaymentStatusView, error)
	IsEnrolled(ctx context.Context, accountID, courseID uint64) (bool, error)
}

// Server exposes payment status and enrollment checks to other services.
// Callers pass internal auth, so lookups are trusted.
type Server struct {
	paymentService paymentService
}

func NewServer(paymentService paymentService) *Server {
	return &Server{paymentService: paymentService}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) GetPaymentStatus(ctx context.Context, req *types.GetPaymentStatusRequest) (*types.PaymentStatusResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	view, err := s.paymentService.PollAndReconcile(ctx, &service.StatusLookup{
		PaymentID:       req.GetId(),
		Reference:       req.GetReference(),
		MerchantOrderID: req.GetMerchantOrderId(),
		Trusted:         true,
	})
	if err != nil {
		return nil, s.statusError(ctx, err, "Get payment status failed")
	}

	return mapper.StatusViewToResponse(view), nil
}

func (s *Server) CheckEnrollment(ctx context.Context, req *types.CheckEnrollmentRequest) (*types.CheckEnrollmentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	enrolled, err := s.paymentService.IsEnrolled(ctx, req.GetAccountId(), req.GetCourseId())
	if err != nil {
		return nil, s.statusError(ctx, err, "Check enrollment failed")
	}

	return &types.CheckEnrollmentResponse{
		AccountId: req.GetAccountId(),
		CourseId:  req.GetCourseId(),
		Enrolled:  enrolled,
	}, nil
}

func (s *Server) statusError(ctx context.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPaymentNotFound):
		return status.Error(codes.NotFound, "payment not found")
	case errors.Is(err, service.ErrProviderUnavailable):
		return status.Error(codes.Unavailable, "payment provider unavailable")
	default:
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Internal, "internal server error")
	}
}
