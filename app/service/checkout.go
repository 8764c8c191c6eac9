package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
)

type CheckoutRequest interface {
	GetCourseId() uint64
	GetProvider() string
	GetPaymentMethod() string
	GetEmail() string
	GetName() string
	GetPhone() string
}

type CheckoutResult struct {
	Kind            string
	RecordID        uint64
	Provider        string
	PaymentMethod   string
	Reference       string
	MerchantOrderID string
	AmountMinor     int64
	Currency        string
	PaymentURL      *string
	VANumber        *string
	QRString        *string
	ExpiresAt       *time.Time
}

// CreateCheckout opens a gateway transaction for the course. With an
// account it creates a registered payment; without one it creates a
// pay-first pending payment keyed by the customer's email.
func (s *PaymentService) CreateCheckout(ctx context.Context, account *entity.Account, req CheckoutRequest) (*CheckoutResult, error) {
	if req.GetCourseId() == 0 {
		return nil, fmt.Errorf("%w: course_id is required", ErrInvalidRequest)
	}

	course, err := s.courseRepo.FindByID(ctx, req.GetCourseId())
	if err != nil {
		return nil, err
	}
	if course == nil || !course.IsPublished {
		return nil, ErrCourseNotFound
	}

	providerCode := strings.ToLower(strings.TrimSpace(req.GetProvider()))
	if providerCode == "" {
		providerCode = s.paymentsCfg.DefaultProvider
	}
	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		return nil, ErrProviderUnsupported
	}

	customer := provider.Customer{
		Email: normalizeEmail(req.GetEmail()),
		Name:  strings.TrimSpace(req.GetName()),
		Phone: strings.TrimSpace(req.GetPhone()),
	}
	callbackCtx := provider.CallbackContext{CourseID: course.ID}

	if account != nil {
		enrolled, err := s.enrollmentRepo.Exists(ctx, account.ID, course.ID)
		if err != nil {
			return nil, err
		}
		if enrolled {
			return nil, ErrAlreadyEnrolled
		}
		customer.Email = account.Email
		customer.Name = account.Name
		if customer.Phone == "" {
			customer.Phone = account.Phone
		}
		callbackCtx.AccountID = account.ID
	} else {
		if customer.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
		}
		if _, err := mail.ParseAddress(customer.Email); err != nil {
			return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidRequest)
		}
		callbackCtx.Email = customer.Email
		callbackCtx.PayFirst = true
	}

	now := s.now()
	merchantOrderID := newMerchantOrderID(s.paymentsCfg.OrderIDPrefix, now)
	paymentMethod := strings.ToUpper(strings.TrimSpace(req.GetPaymentMethod()))

	out, err := providerClient.CreateCheckout(ctx, &provider.CheckoutInput{
		MerchantOrderID: merchantOrderID,
		AmountMinor:     course.PriceMinor,
		Currency:        course.Currency,
		PaymentMethod:   paymentMethod,
		ProductDetails:  course.Title,
		Customer:        customer,
		Context:         callbackCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if out == nil || strings.TrimSpace(out.Reference) == "" {
		return nil, fmt.Errorf("%w: provider returned no reference", ErrProviderUnavailable)
	}

	result := &CheckoutResult{
		Provider:        providerClient.Code(),
		PaymentMethod:   paymentMethod,
		Reference:       strings.TrimSpace(out.Reference),
		MerchantOrderID: merchantOrderID,
		AmountMinor:     course.PriceMinor,
		Currency:        course.Currency,
		PaymentURL:      out.PaymentURL,
		VANumber:        out.VANumber,
		QRString:        out.QRString,
		ExpiresAt:       out.ExpiresAt,
	}

	err = s.store.WithTx(ctx, func(repos repository.TxRepositories) error {
		if account != nil {
			payment := &entity.Payment{
				AccountID:       account.ID,
				CourseID:        course.ID,
				Provider:        result.Provider,
				PaymentMethod:   paymentMethod,
				Reference:       result.Reference,
				MerchantOrderID: merchantOrderID,
				AmountMinor:     course.PriceMinor,
				Currency:        course.Currency,
				Status:          entity.PaymentStatusPending,
				PaymentURL:      out.PaymentURL,
				VANumber:        out.VANumber,
				QRString:        out.QRString,
				ExpiresAt:       out.ExpiresAt,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := repos.CreatePayment(ctx, payment); err != nil {
				return err
			}
			result.Kind = entity.RecordKindPayment
			result.RecordID = payment.ID
		} else {
			pending := &entity.PendingPayment{
				Email:           customer.Email,
				Name:            customer.Name,
				Phone:           customer.Phone,
				CourseID:        course.ID,
				Provider:        result.Provider,
				PaymentMethod:   paymentMethod,
				Reference:       result.Reference,
				MerchantOrderID: merchantOrderID,
				AmountMinor:     course.PriceMinor,
				Currency:        course.Currency,
				Status:          entity.PaymentStatusPending,
				PaymentURL:      out.PaymentURL,
				VANumber:        out.VANumber,
				QRString:        out.QRString,
				ExpiresAt:       out.ExpiresAt,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := repos.CreatePendingPayment(ctx, pending); err != nil {
				return err
			}
			result.Kind = entity.RecordKindPendingPayment
			result.RecordID = pending.ID
		}

		return repos.CreateEvent(ctx, &entity.PaymentEvent{
			RecordKind: result.Kind,
			RecordID:   result.RecordID,
			EventType:  "payment_created",
			Source:     "checkout",
			NewStatus:  entity.PaymentStatusPending,
			CreatedAt:  now,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadyExists) || errors.Is(err, repository.ErrPendingPaymentAlreadyExists) {
			return nil, ErrPaymentAlreadyExists
		}
		return nil, err
	}

	s.logger.WithField("record_kind", result.Kind).
		WithField("reference", result.Reference).
		WithField("merchant_order_id", merchantOrderID).
		WithField("provider", result.Provider).
		Info("checkout created")

	return result, nil
}
