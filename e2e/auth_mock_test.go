//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"

	authpb "github.com/vibast-solutions/ms-go-auth/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const authMockAddr = "0.0.0.0:38084"

// Keys can be overridden so the suite runs against a deployed stack whose
// auth service was seeded with other values.
var (
	callerKey   = envOr("COURSE_PAYMENTS_CALLER_API_KEY", "portal-caller-key")
	noAccessKey = envOr("COURSE_PAYMENTS_NO_ACCESS_API_KEY", "portal-no-access-key")
	appKey      = envOr("COURSE_PAYMENTS_APP_API_KEY", "course-payments-app-key")
)

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func paymentsCallerAPIKey() string { return callerKey }
func paymentsNoAccessAPIKey() string { return noAccessKey }

type authMockServer struct {
	authpb.UnimplementedAuthServiceServer
	access map[string]*authpb.ValidateInternalAccessResponse
}

func newAuthMockServer() *authMockServer {
	return &authMockServer{
		access: map[string]*authpb.ValidateInternalAccessResponse{
			callerKey: {
				ServiceName:   "learning-portal",
				AllowedAccess: []string{"course-payments-service", "courses-service"},
			},
			noAccessKey: {
				ServiceName:   "learning-portal",
				AllowedAccess: []string{"courses-service"},
			},
		},
	}
}

// ValidateInternalAccess only answers the payments service itself, which
// authenticates with its own app key.
func (s *authMockServer) ValidateInternalAccess(ctx context.Context, req *authpb.ValidateInternalAccessRequest) (*authpb.ValidateInternalAccessResponse, error) {
	if incomingAPIKey(ctx) != appKey {
		return nil, status.Error(codes.Unauthenticated, "unauthorized caller")
	}

	resp, ok := s.access[strings.TrimSpace(req.GetApiKey())]
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "invalid api key")
	}
	return resp, nil
}

func incomingAPIKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get("x-api-key"); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func TestMain(m *testing.M) {
	listener, err := net.Listen("tcp", authMockAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start auth grpc mock: %v\n", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	authpb.RegisterAuthServiceServer(grpcServer, newAuthMockServer())

	go func() {
		_ = grpcServer.Serve(listener)
	}()

	exitCode := m.Run()

	grpcServer.GracefulStop()
	_ = listener.Close()

	os.Exit(exitCode)
}
