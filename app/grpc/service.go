package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-course-payments/app/types"
	"google.golang.org/grpc"
)

const serviceName = "course_payments.EnrollmentPayments"

const (
	methodHealth           = "/" + serviceName + "/Health"
	methodGetPaymentStatus = "/" + serviceName + "/GetPaymentStatus"
	methodCheckEnrollment  = "/" + serviceName + "/CheckEnrollment"
)

type EnrollmentPaymentsServer interface {
	Health(context.Context, *types.HealthRequest) (*types.HealthResponse, error)
	GetPaymentStatus(context.Context, *types.GetPaymentStatusRequest) (*types.PaymentStatusResponse, error)
	CheckEnrollment(context.Context, *types.CheckEnrollmentRequest) (*types.CheckEnrollmentResponse, error)
}

func RegisterEnrollmentPaymentsServer(s grpc.ServiceRegistrar, srv EnrollmentPaymentsServer) {
	s.RegisterService(&enrollmentPaymentsServiceDesc, srv)
}

var enrollmentPaymentsServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EnrollmentPaymentsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: healthHandler},
		{MethodName: "GetPaymentStatus", Handler: getPaymentStatusHandler},
		{MethodName: "CheckEnrollment", Handler: checkEnrollmentHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(types.HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EnrollmentPaymentsServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodHealth}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EnrollmentPaymentsServer).Health(ctx, req.(*types.HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getPaymentStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(types.GetPaymentStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EnrollmentPaymentsServer).GetPaymentStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetPaymentStatus}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EnrollmentPaymentsServer).GetPaymentStatus(ctx, req.(*types.GetPaymentStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func checkEnrollmentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(types.CheckEnrollmentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EnrollmentPaymentsServer).CheckEnrollment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCheckEnrollment}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EnrollmentPaymentsServer).CheckEnrollment(ctx, req.(*types.CheckEnrollmentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls EnrollmentPayments over a connection; every call is sent
// with the JSON content subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Health(ctx context.Context, in *types.HealthRequest, opts ...grpc.CallOption) (*types.HealthResponse, error) {
	out := new(types.HealthResponse)
	if err := c.cc.Invoke(ctx, methodHealth, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, in *types.GetPaymentStatusRequest, opts ...grpc.CallOption) (*types.PaymentStatusResponse, error) {
	out := new(types.PaymentStatusResponse)
	if err := c.cc.Invoke(ctx, methodGetPaymentStatus, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CheckEnrollment(ctx context.Context, in *types.CheckEnrollmentRequest, opts ...grpc.CallOption) (*types.CheckEnrollmentResponse, error) {
	out := new(types.CheckEnrollmentResponse)
	if err := c.cc.Invoke(ctx, methodCheckEnrollment, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}
