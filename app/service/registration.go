package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type RegistrationRequest interface {
	GetReference() string
	GetEmail() string
	GetPassword() string
	GetName() string
	GetPhone() string
}

type RegistrationResult struct {
	AccountID      uint64
	AccountCreated bool
	CourseID       uint64
	PaymentID      uint64
	Enrolled       bool
	AccessToken    string
	ExpiresAt      time.Time
}

// CompleteRegistration converts a completed pay-first payment into an
// account, a registered payment and an enrollment. The pending record is
// locked and deleted in the same transaction, so a reference can be
// redeemed once.
func (s *PaymentService) CompleteRegistration(ctx context.Context, req RegistrationRequest) (*RegistrationResult, error) {
	reference := strings.TrimSpace(req.GetReference())
	email := normalizeEmail(req.GetEmail())
	password := req.GetPassword()
	if reference == "" || email == "" {
		return nil, fmt.Errorf("%w: reference and email are required", ErrInvalidRequest)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidRequest, minPasswordLength)
	}

	var account *entity.Account
	result := &RegistrationResult{}

	err := s.store.WithTx(ctx, func(repos repository.TxRepositories) error {
		pending, err := repos.LockPendingPayment(ctx, repository.LookupKey{Reference: reference})
		if err != nil {
			return err
		}
		if pending == nil {
			return ErrPaymentNotFound
		}
		if pending.Status != entity.PaymentStatusCompleted {
			return ErrPaymentNotCompleted
		}
		if normalizeEmail(pending.Email) != email {
			return fmt.Errorf("%w: email does not match the payment", ErrContextMismatch)
		}

		now := s.now()
		account, err = repos.FindAccountByEmail(ctx, email)
		if err != nil {
			return err
		}
		if account != nil {
			if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
				return ErrInvalidCredentials
			}
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(req.GetName())
			if name == "" {
				name = pending.Name
			}
			phone := strings.TrimSpace(req.GetPhone())
			if phone == "" {
				phone = pending.Phone
			}
			account = &entity.Account{
				Email:        email,
				Name:         name,
				Phone:        phone,
				PasswordHash: string(hash),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := repos.CreateAccount(ctx, account); err != nil {
				if errors.Is(err, repository.ErrAccountAlreadyExists) {
					return ErrInvalidCredentials
				}
				return err
			}
			result.AccountCreated = true
		}

		completedAt := now
		if pending.CompletedAt != nil {
			completedAt = *pending.CompletedAt
		}
		payment := &entity.Payment{
			AccountID:       account.ID,
			CourseID:        pending.CourseID,
			Provider:        pending.Provider,
			PaymentMethod:   pending.PaymentMethod,
			Reference:       pending.Reference,
			MerchantOrderID: pending.MerchantOrderID,
			AmountMinor:     pending.AmountMinor,
			Currency:        pending.Currency,
			Status:          entity.PaymentStatusCompleted,
			PaymentURL:      pending.PaymentURL,
			VANumber:        pending.VANumber,
			QRString:        pending.QRString,
			ExpiresAt:       pending.ExpiresAt,
			CompletedAt:     &completedAt,
			CreatedAt:       pending.CreatedAt,
			UpdatedAt:       now,
		}
		if err := repos.CreatePayment(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrPaymentAlreadyExists) {
				return ErrPaymentAlreadyExists
			}
			return err
		}

		if _, err := s.granter.GrantIfAbsent(ctx, repos, account.ID, pending.CourseID); err != nil {
			return err
		}

		if err := repos.DeletePendingPayment(ctx, pending.ID); err != nil {
			return err
		}

		old := pending.Status
		for _, event := range []*entity.PaymentEvent{
			{RecordKind: entity.RecordKindPendingPayment, RecordID: pending.ID, EventType: "pending_payment_converted", OldStatus: &old},
			{RecordKind: entity.RecordKindPayment, RecordID: payment.ID, EventType: "payment_created"},
		} {
			event.Source = SourceRegistration
			event.NewStatus = entity.PaymentStatusCompleted
			event.CreatedAt = now
			if err := repos.CreateEvent(ctx, event); err != nil {
				return err
			}
		}

		result.AccountID = account.ID
		result.CourseID = pending.CourseID
		result.PaymentID = payment.ID
		result.Enrolled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncReconciliation(SourceRegistration, "converted")
	s.logger.WithField("reference", reference).
		WithField("account_id", result.AccountID).
		WithField("course_id", result.CourseID).
		WithField("account_created", result.AccountCreated).
		Info("pay-first payment converted")

	if s.tokens != nil {
		token, expiresAt, err := s.tokens.IssueAccessToken(account)
		if err != nil {
			return nil, err
		}
		result.AccessToken = token
		result.ExpiresAt = expiresAt
	}

	return result, nil
}
