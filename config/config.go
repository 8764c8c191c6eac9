package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Auth              AuthConfig
	Duitku            DuitkuConfig
	MercadoPago       MercadoPagoConfig
	SMTP              SMTPConfig
	Payments          PaymentsConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	PublicURL   string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type AuthConfig struct {
	JWTSecret         string
	SessionCookieName string
	QueryTokenParam   string
	AccessTokenTTL    time.Duration
}

type DuitkuConfig struct {
	MerchantCode  string
	APIKey        string
	BaseURL       string
	CallbackURL   string
	ReturnURL     string
	ExpiryMinutes int
	HTTPTimeout   time.Duration
}

type MercadoPagoConfig struct {
	AccessToken     string
	WebhookSecret   string
	NotificationURL string
	BackURL         string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type PaymentsConfig struct {
	DefaultProvider     string
	OrderIDPrefix       string
	StatusPollTimeout   time.Duration
	PollLockTTL         time.Duration
	NotificationTimeout time.Duration
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
	ReviewReportInterval  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "course-payments-service"),
			PublicURL:   strings.TrimRight(getEnv("APP_PUBLIC_URL", "http://localhost:8080"), "/"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("AUTH_JWT_SECRET", ""),
			SessionCookieName: getEnv("AUTH_SESSION_COOKIE_NAME", "lms_session"),
			QueryTokenParam:   getEnv("AUTH_QUERY_TOKEN_PARAM", "access_token"),
			AccessTokenTTL:    getMinutesEnv("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*time.Hour),
		},
		Duitku: DuitkuConfig{
			MerchantCode:  getEnv("DUITKU_MERCHANT_CODE", ""),
			APIKey:        getEnv("DUITKU_API_KEY", ""),
			BaseURL:       strings.TrimRight(getEnv("DUITKU_BASE_URL", "https://sandbox.duitku.com/webapi/api/merchant"), "/"),
			CallbackURL:   getEnv("DUITKU_CALLBACK_URL", ""),
			ReturnURL:     getEnv("DUITKU_RETURN_URL", ""),
			ExpiryMinutes: getIntEnv("DUITKU_EXPIRY_MINUTES", 60),
			HTTPTimeout:   getSecondsEnv("DUITKU_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:     getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
			WebhookSecret:   getEnv("MERCADOPAGO_WEBHOOK_SECRET", ""),
			NotificationURL: getEnv("MERCADOPAGO_NOTIFICATION_URL", ""),
			BackURL:         getEnv("MERCADOPAGO_BACK_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@localhost"),
		},
		Payments: PaymentsConfig{
			DefaultProvider:     strings.ToLower(getEnv("PAYMENTS_DEFAULT_PROVIDER", "duitku")),
			OrderIDPrefix:       strings.ToUpper(getEnv("PAYMENTS_ORDER_ID_PREFIX", "LMS")),
			StatusPollTimeout:   getSecondsEnv("PAYMENTS_STATUS_POLL_TIMEOUT_SECONDS", 8*time.Second),
			PollLockTTL:         getSecondsEnv("PAYMENTS_POLL_LOCK_TTL_SECONDS", 15*time.Second),
			NotificationTimeout: getSecondsEnv("PAYMENTS_NOTIFICATION_TIMEOUT_SECONDS", 10*time.Second),
			PendingTimeout:      getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 24*time.Hour),
			ReconcileStaleAfter: getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 5*time.Minute),
			ExpirePendingInterval: getMinutesEnv("PAYMENTS_EXPIRE_PENDING_INTERVAL_MINUTES", 30*time.Minute),
			ReviewReportInterval:  getMinutesEnv("PAYMENTS_REVIEW_REPORT_INTERVAL_MINUTES", 60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
