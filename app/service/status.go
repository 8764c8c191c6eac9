package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/cache"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
)

const (
	DegradedProviderUnavailable = "provider_unavailable"
	DegradedPollInProgress      = "poll_in_progress"

	defaultStatusPollTimeout = 8 * time.Second
	defaultPollLockTTL       = 15 * time.Second
)

type StatusLookup struct {
	PaymentID       uint64
	Reference       string
	MerchantOrderID string

	// AccountID is the caller. Registered payments are only visible to
	// their owner unless Trusted is set (internal callers).
	AccountID uint64
	Trusted   bool
}

type PaymentStatusView struct {
	ID              uint64
	Kind            string
	Provider        string
	Reference       string
	MerchantOrderID string
	CourseID        uint64
	AccountID       uint64
	AmountMinor     int64
	Currency        string
	Status          entity.PaymentStatus
	PaymentURL      *string
	VANumber        *string
	QRString        *string
	ExpiresAt       *time.Time

	Enrolled          bool
	CanRetry          bool
	CanAccess         bool
	NeedsPayment      bool
	NeedsRegistration bool
	HeldForReview     bool

	Stale          bool
	DegradedReason string
}

// PollAndReconcile returns the current state of a payment, asking the
// provider first when the record is not terminal yet. A failing or slow
// provider never fails the call: the last local state is returned with
// Stale set.
func (s *PaymentService) PollAndReconcile(ctx context.Context, lookup *StatusLookup) (*PaymentStatusView, error) {
	if lookup == nil {
		return nil, ErrInvalidRequest
	}

	rec, err := s.findRecord(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrPaymentNotFound
	}
	if !rec.isPending() && !lookup.Trusted && rec.payment.AccountID != lookup.AccountID {
		return nil, ErrForbidden
	}

	if rec.status().IsTerminal() {
		metrics.ObserveStatusPoll(rec.provider(), "skipped", 0)
		return s.buildView(ctx, rec)
	}

	degraded, err := s.pollRecord(ctx, rec, SourcePoll)
	if err != nil {
		return nil, err
	}

	fresh, err := s.reloadRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		// Converted by a concurrent registration; show the converted payment.
		fresh, err = s.findRecord(ctx, &StatusLookup{Reference: rec.reference()})
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			return nil, ErrPaymentNotFound
		}
	}

	view, err := s.buildView(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if degraded != "" {
		view.Stale = true
		view.DegradedReason = degraded
	}
	return view, nil
}

// pollRecord asks the provider for the record's status and reconciles the
// answer. It returns a degraded reason instead of an error when the
// provider could not be consulted.
func (s *PaymentService) pollRecord(ctx context.Context, rec *record, source string) (string, error) {
	logger := s.logger.WithFields(logrus.Fields{
		"record_kind":       rec.kind(),
		"reference":         rec.reference(),
		"merchant_order_id": rec.merchantOrderID(),
		"provider":          rec.provider(),
		"source":            source,
	})

	lockTTL := s.paymentsCfg.PollLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultPollLockTTL
	}
	token, err := s.locker.TryLock(ctx, rec.reference(), lockTTL)
	switch {
	case errors.Is(err, cache.ErrLockHeld):
		metrics.ObserveStatusPoll(rec.provider(), "locked", 0)
		return DegradedPollInProgress, nil
	case err != nil:
		// The row lock in Reconcile still serializes writers.
		logger.WithError(err).Warn("poll lock unavailable, polling without it")
		token = ""
	}
	if token != "" {
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), rec.reference(), token); err != nil {
				logger.WithError(err).Warn("poll lock release failed")
			}
		}()
	}

	started := time.Now()
	status, err := s.checkProviderStatus(ctx, rec)
	latency := time.Since(started)
	if err != nil {
		metrics.ObserveStatusPoll(rec.provider(), "degraded", latency)
		logger.WithError(err).WithField("error_kind", ErrorKind(err)).Warn("provider status poll failed")
		return DegradedProviderUnavailable, nil
	}
	metrics.ObserveStatusPoll(rec.provider(), "ok", latency)

	_, err = s.Reconcile(ctx, &ReconcileInput{
		Kind:       rec.kind(),
		Key:        repository.LookupKey{Reference: rec.reference()},
		Provider:   rec.provider(),
		ResultCode: status.ResultCode,
		RawAmount:  status.RawAmount,
		Source:     source,
	})
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		return "", err
	}
	return "", nil
}

func (s *PaymentService) checkProviderStatus(ctx context.Context, rec *record) (*provider.StatusResult, error) {
	providerClient, err := s.providerReg.Get(rec.provider())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	timeout := s.paymentsCfg.StatusPollTimeout
	if timeout <= 0 {
		timeout = defaultStatusPollTimeout
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status, err := providerClient.CheckStatus(pollCtx, &provider.StatusQuery{
		Reference:       rec.reference(),
		MerchantOrderID: rec.merchantOrderID(),
		Currency:        rec.currency(),
	})
	if errors.Is(err, provider.ErrTransactionUnknown) {
		return &provider.StatusResult{Reference: rec.reference(), ResultCode: provider.ResultInProgress}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if status == nil {
		return nil, fmt.Errorf("%w: empty status", ErrProviderUnavailable)
	}
	return status, nil
}

func (s *PaymentService) findRecord(ctx context.Context, lookup *StatusLookup) (*record, error) {
	if lookup.PaymentID > 0 {
		payment, err := s.paymentRepo.FindByID(ctx, lookup.PaymentID)
		if err != nil || payment == nil {
			return nil, err
		}
		return &record{payment: payment}, nil
	}

	reference := strings.TrimSpace(lookup.Reference)
	merchantOrderID := strings.TrimSpace(lookup.MerchantOrderID)
	if reference == "" && merchantOrderID == "" {
		return nil, ErrInvalidRequest
	}

	var payment *entity.Payment
	var err error
	if reference != "" {
		payment, err = s.paymentRepo.FindByReference(ctx, reference)
	} else {
		payment, err = s.paymentRepo.FindByMerchantOrderID(ctx, merchantOrderID)
	}
	if err != nil {
		return nil, err
	}
	if payment != nil {
		return &record{payment: payment}, nil
	}

	var pending *entity.PendingPayment
	if reference != "" {
		pending, err = s.pendingRepo.FindByReference(ctx, reference)
	} else {
		pending, err = s.pendingRepo.FindByMerchantOrderID(ctx, merchantOrderID)
	}
	if err != nil || pending == nil {
		return nil, err
	}
	return &record{pending: pending}, nil
}

func (s *PaymentService) reloadRecord(ctx context.Context, rec *record) (*record, error) {
	if rec.isPending() {
		pending, err := s.pendingRepo.FindByID(ctx, rec.id())
		if err != nil || pending == nil {
			return nil, err
		}
		return &record{pending: pending}, nil
	}
	payment, err := s.paymentRepo.FindByID(ctx, rec.id())
	if err != nil || payment == nil {
		return nil, err
	}
	return &record{payment: payment}, nil
}

func (s *PaymentService) buildView(ctx context.Context, rec *record) (*PaymentStatusView, error) {
	view := &PaymentStatusView{
		ID:              rec.id(),
		Kind:            rec.kind(),
		Provider:        rec.provider(),
		Reference:       rec.reference(),
		MerchantOrderID: rec.merchantOrderID(),
		CourseID:        rec.courseID(),
		AmountMinor:     rec.amountMinor(),
		Currency:        rec.currency(),
		Status:          rec.status(),
		HeldForReview:   rec.status() == entity.PaymentStatusPending && rec.reviewReason() != nil,
	}

	if rec.isPending() {
		view.PaymentURL = rec.pending.PaymentURL
		view.VANumber = rec.pending.VANumber
		view.QRString = rec.pending.QRString
		view.ExpiresAt = rec.pending.ExpiresAt
		view.NeedsRegistration = rec.status() == entity.PaymentStatusCompleted
	} else {
		view.AccountID = rec.payment.AccountID
		view.PaymentURL = rec.payment.PaymentURL
		view.VANumber = rec.payment.VANumber
		view.QRString = rec.payment.QRString
		view.ExpiresAt = rec.payment.ExpiresAt

		enrolled, err := s.enrollmentRepo.Exists(ctx, rec.payment.AccountID, rec.payment.CourseID)
		if err != nil {
			return nil, err
		}
		view.Enrolled = enrolled
	}

	view.CanRetry = view.Status == entity.PaymentStatusFailed
	view.CanAccess = view.Enrolled
	view.NeedsPayment = view.Status != entity.PaymentStatusCompleted
	return view, nil
}
