package cmd

import (
	"context"
	"database/sql"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/auth"
	"github.com/vibast-solutions/ms-go-course-payments/app/cache"
	"github.com/vibast-solutions/ms-go-course-payments/app/factory"
	"github.com/vibast-solutions/ms-go-course-payments/app/notification"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
	"github.com/vibast-solutions/ms-go-course-payments/app/service"
	"github.com/vibast-solutions/ms-go-course-payments/config"
)

type dependencies struct {
	cfg            *config.Config
	paymentService *service.PaymentService
	accountRepo    *repository.AccountRepository
	tokens         *auth.TokenManager
}

func mustCreateDependencies() (*dependencies, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	var redisClient *redis.Client
	var locker cache.Locker = cache.NoopLocker{}
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			_ = db.Close()
			logrus.WithError(err).Fatal("Failed to connect to redis")
		}
		locker = cache.NewRedisLocker(redisClient)
	} else {
		logrus.Warn("REDIS_ADDR is empty, status polls are not deduplicated across instances")
	}

	providerRegistry, err := newProviderRegistry(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize payment providers")
	}

	var notifier notification.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notification.NewSMTPNotifier(cfg.SMTP)
	} else {
		notifier = notification.NewLogNotifier(factory.NewModuleLogger("notification"))
	}

	accountRepo := repository.NewAccountRepository(db)
	tokens := auth.NewTokenManager(cfg.Auth)

	paymentService := service.NewPaymentService(
		repository.NewStore(db),
		repository.NewPaymentRepository(db),
		repository.NewPendingPaymentRepository(db),
		repository.NewEnrollmentRepository(db),
		accountRepo,
		repository.NewCourseRepository(db),
		providerRegistry,
		locker,
		notifier,
		tokens,
		cfg.Payments,
		cfg.App.PublicURL,
	)

	cleanup := func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close redis")
			}
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return &dependencies{
		cfg:            cfg,
		paymentService: paymentService,
		accountRepo:    accountRepo,
		tokens:         tokens,
	}, cleanup
}

// newProviderRegistry registers every gateway that has credentials.
func newProviderRegistry(cfg *config.Config) (*provider.Registry, error) {
	var providers []provider.Provider

	if cfg.Duitku.MerchantCode != "" && cfg.Duitku.APIKey != "" {
		providers = append(providers, provider.NewDuitkuProvider(provider.DuitkuConfig{
			MerchantCode:  cfg.Duitku.MerchantCode,
			APIKey:        cfg.Duitku.APIKey,
			BaseURL:       cfg.Duitku.BaseURL,
			CallbackURL:   callbackURL(cfg, cfg.Duitku.CallbackURL, provider.CodeDuitku),
			ReturnURL:     cfg.Duitku.ReturnURL,
			ExpiryMinutes: cfg.Duitku.ExpiryMinutes,
			HTTPTimeout:   cfg.Duitku.HTTPTimeout,
		}))
	} else {
		logrus.Warn("Duitku credentials are not configured")
	}

	if cfg.MercadoPago.AccessToken != "" {
		mp, err := provider.NewMercadoPagoProvider(provider.MercadoPagoConfig{
			AccessToken:     cfg.MercadoPago.AccessToken,
			WebhookSecret:   cfg.MercadoPago.WebhookSecret,
			NotificationURL: callbackURL(cfg, cfg.MercadoPago.NotificationURL, provider.CodeMercadoPago),
			BackURL:         cfg.MercadoPago.BackURL,
			ExpiryMinutes:   cfg.Duitku.ExpiryMinutes,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, mp)
	}

	return provider.NewRegistry(providers...), nil
}

func callbackURL(cfg *config.Config, configured, providerCode string) string {
	if configured != "" {
		return configured
	}
	return cfg.App.PublicURL + "/webhooks/" + providerCode
}
