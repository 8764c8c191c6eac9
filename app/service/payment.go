package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/cache"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/factory"
	"github.com/vibast-solutions/ms-go-course-payments/app/notification"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
	"github.com/vibast-solutions/ms-go-course-payments/config"
)

const defaultBatchSize = int32(100)

const (
	SourceWebhook      = "webhook"
	SourcePoll         = "poll"
	SourceJob          = "job"
	SourceRegistration = "registration"
)

type transactor interface {
	WithTx(ctx context.Context, fn func(repos repository.TxRepositories) error) error
}

type paymentRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	FindByReference(ctx context.Context, reference string) (*entity.Payment, error)
	FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*entity.Payment, error)
	ListStalePending(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Payment, error)
	ListHeldForReview(ctx context.Context, limit int32) ([]*entity.Payment, error)
}

type pendingPaymentRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.PendingPayment, error)
	FindByReference(ctx context.Context, reference string) (*entity.PendingPayment, error)
	FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*entity.PendingPayment, error)
	ListStalePending(ctx context.Context, before time.Time, limit int32) ([]*entity.PendingPayment, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PendingPayment, error)
	ListHeldForReview(ctx context.Context, limit int32) ([]*entity.PendingPayment, error)
}

type enrollmentRepository interface {
	Exists(ctx context.Context, accountID, courseID uint64) (bool, error)
}

type accountRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Account, error)
}

type courseRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Course, error)
}

type tokenIssuer interface {
	IssueAccessToken(account *entity.Account) (string, time.Time, error)
}

type PaymentService struct {
	store          transactor
	paymentRepo    paymentRepository
	pendingRepo    pendingPaymentRepository
	enrollmentRepo enrollmentRepository
	accountRepo    accountRepository
	courseRepo     courseRepository
	providerReg    *provider.Registry
	locker         cache.Locker
	notifier       notification.Notifier
	tokens         tokenIssuer
	granter        *EnrollmentGranter
	paymentsCfg    config.PaymentsConfig
	publicURL      string
	logger         logrus.FieldLogger
	now            func() time.Time
}

func NewPaymentService(
	store transactor,
	paymentRepo paymentRepository,
	pendingRepo pendingPaymentRepository,
	enrollmentRepo enrollmentRepository,
	accountRepo accountRepository,
	courseRepo courseRepository,
	providerReg *provider.Registry,
	locker cache.Locker,
	notifier notification.Notifier,
	tokens tokenIssuer,
	paymentsCfg config.PaymentsConfig,
	publicURL string,
) *PaymentService {
	if locker == nil {
		locker = cache.NoopLocker{}
	}
	logger := factory.NewModuleLogger("payment_service")
	if notifier == nil {
		notifier = notification.NewLogNotifier(logger)
	}

	now := func() time.Time { return time.Now().UTC() }
	return &PaymentService{
		store:          store,
		paymentRepo:    paymentRepo,
		pendingRepo:    pendingRepo,
		enrollmentRepo: enrollmentRepo,
		accountRepo:    accountRepo,
		courseRepo:     courseRepo,
		providerReg:    providerReg,
		locker:         locker,
		notifier:       notifier,
		tokens:         tokens,
		granter:        NewEnrollmentGranter(),
		paymentsCfg:    paymentsCfg,
		publicURL:      strings.TrimRight(strings.TrimSpace(publicURL), "/"),
		logger:         logger,
		now:            now,
	}
}

// IsEnrolled reports whether the account already has access to the course.
func (s *PaymentService) IsEnrolled(ctx context.Context, accountID, courseID uint64) (bool, error) {
	if accountID == 0 || courseID == 0 {
		return false, ErrInvalidRequest
	}
	return s.enrollmentRepo.Exists(ctx, accountID, courseID)
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *PaymentService) registrationURL(reference string) string {
	if s.publicURL == "" {
		return ""
	}
	return s.publicURL + "/register?reference=" + reference
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
