package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-course-payments/app/auth"
	"github.com/vibast-solutions/ms-go-course-payments/app/controller"
	paymentgrpc "github.com/vibast-solutions/ms-go-course-payments/app/grpc"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/types"
	"github.com/vibast-solutions/ms-go-course-payments/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start the public HTTP API (Echo), gateway webhooks and the internal gRPC server.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type httpControllers struct {
	payments *controller.PaymentController
	webhooks *controller.WebhookController
	internal *controller.InternalController
}

func runServe(_ *cobra.Command, _ []string) {
	deps, cleanup := mustCreateDependencies()
	defer cleanup()
	cfg := deps.cfg

	metrics.MustRegister()

	controllers := httpControllers{
		payments: controller.NewPaymentController(deps.paymentService),
		webhooks: controller.NewWebhookController(deps.paymentService),
		internal: controller.NewInternalController(deps.paymentService),
	}
	grpcPaymentServer := paymentgrpc.NewServer(deps.paymentService)

	accountMiddleware := auth.NewEchoAccountMiddleware(auth.NewChain(
		auth.NewBearerTokenResolver(deps.tokens, deps.accountRepo),
		auth.NewSessionCookieResolver(cfg.Auth.SessionCookieName, deps.accountRepo),
		auth.NewQueryTokenResolver(cfg.Auth.QueryTokenParam, deps.tokens, deps.accountRepo),
	))

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(controllers, accountMiddleware, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcPaymentServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	controllers httpControllers,
	accountMiddleware *auth.EchoAccountMiddleware,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestID())

	e.GET("/health", controllers.payments.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Gateways call webhooks without our headers; they are authenticated
	// by their signature inside the provider adapter.
	e.POST("/webhooks/:provider", controllers.webhooks.HandleProviderCallback)

	e.POST("/checkout", controllers.payments.CreateCheckout, accountMiddleware.OptionalAccount())
	e.GET("/payments/status", controllers.payments.LookupPaymentStatus, accountMiddleware.OptionalAccount())
	e.GET("/payments/:id/status", controllers.payments.GetPaymentStatus, accountMiddleware.RequireAccount())
	e.POST("/registrations/complete", controllers.payments.CompleteRegistration)

	internal := e.Group("/internal",
		requireRequestID(),
		internalAuthMiddleware.RequireInternalAccess(appServiceName),
	)
	internal.GET("/payments/status", controllers.internal.GetPaymentStatus)
	internal.GET("/enrollments", controllers.internal.CheckEnrollment)

	return e
}

// requireRequestID is applied to service-to-service routes only; browser
// and gateway traffic gets a generated id from the RequestID middleware.
func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required", Kind: "invalid_request"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	paymentServer *paymentgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			paymentgrpc.RecoveryInterceptor(),
			paymentgrpc.RequestIDInterceptor(),
			paymentgrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	paymentgrpc.RegisterEnrollmentPaymentsServer(grpcSrv, paymentServer)

	return grpcSrv, lis
}
