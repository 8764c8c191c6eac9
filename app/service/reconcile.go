package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/notification"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
)

type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeFailed           Outcome = "failed"
	OutcomeAlreadyFailed    Outcome = "already_failed"
	OutcomeIgnoredTerminal  Outcome = "ignored_terminal"
	OutcomeHeldForReview    Outcome = "held_for_review"
	OutcomeInProgress       Outcome = "in_progress"
)

type ReconcileInput struct {
	// Kind is entity.RecordKindPayment, entity.RecordKindPendingPayment or
	// empty. Empty searches both tables, guided by Context when present.
	Kind string
	Key  repository.LookupKey

	Provider   string
	ResultCode string
	RawAmount  string
	Context    *provider.CallbackContext
	Source     string

	// KeepReviewHold stops a failure code from resolving a record held for
	// review. Automated expiry sets it so it never fails held records.
	KeepReviewHold bool

	// Callback, when set, is stored in the same transaction once the record
	// is matched. Rejected callbacks therefore leave no row behind.
	Callback *entity.PaymentCallback
}

type ReconcileResult struct {
	Outcome           Outcome
	Kind              string
	RecordID          uint64
	Reference         string
	MerchantOrderID   string
	Status            entity.PaymentStatus
	EnrollmentCreated bool
}

// Reconcile applies a provider-reported result code to the stored record.
// The record is row-locked for the whole transition so duplicate webhooks
// and concurrent polls serialize. COMPLETED is terminal: failure and
// unknown codes never touch a completed record.
func (s *PaymentService) Reconcile(ctx context.Context, in *ReconcileInput) (*ReconcileResult, error) {
	if in == nil || in.Key.IsZero() {
		return nil, ErrInvalidRequest
	}

	resultCode := strings.TrimSpace(in.ResultCode)
	source := strings.TrimSpace(in.Source)
	var result *ReconcileResult
	var completed *notification.PaymentNotification
	var accountID uint64

	err := s.store.WithTx(ctx, func(repos repository.TxRepositories) error {
		rec, err := lockRecord(ctx, repos, preferPending(in), in.Key)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrPaymentNotFound
		}
		if err := verifyRecordContext(rec, in); err != nil {
			return err
		}

		now := s.now()
		oldStatus := rec.status()
		mutated := false
		result = &ReconcileResult{
			Kind:            rec.kind(),
			RecordID:        rec.id(),
			Reference:       rec.reference(),
			MerchantOrderID: rec.merchantOrderID(),
		}

		switch {
		case resultCode == provider.ResultSuccess:
			if oldStatus == entity.PaymentStatusCompleted {
				result.Outcome = OutcomeAlreadyProcessed
				break
			}

			rec.apply(entity.PaymentStatusCompleted, nil, now)
			if err := rec.save(ctx, repos); err != nil {
				return err
			}
			mutated = true
			if !rec.isPending() {
				created, err := s.granter.GrantIfAbsent(ctx, repos, rec.payment.AccountID, rec.payment.CourseID)
				if err != nil {
					return err
				}
				result.EnrollmentCreated = created
				accountID = rec.payment.AccountID
			}
			result.Outcome = OutcomeCompleted
			completed = s.buildNotification(rec)

		case resultCode == provider.ResultFailed:
			switch {
			case oldStatus == entity.PaymentStatusCompleted:
				result.Outcome = OutcomeIgnoredTerminal
			case oldStatus == entity.PaymentStatusFailed:
				result.Outcome = OutcomeAlreadyFailed
			case in.KeepReviewHold && rec.reviewReason() != nil:
				result.Outcome = OutcomeHeldForReview
			default:
				rec.apply(entity.PaymentStatusFailed, nil, now)
				if err := rec.save(ctx, repos); err != nil {
					return err
				}
				mutated = true
				result.Outcome = OutcomeFailed
			}

		case resultCode == provider.ResultInProgress:
			result.Outcome = OutcomeInProgress

		default:
			if oldStatus.IsTerminal() {
				result.Outcome = OutcomeIgnoredTerminal
				break
			}
			reason := truncate(fmt.Sprintf("unknown result code %q from %s", resultCode, source), 255)
			rec.apply(entity.PaymentStatusPending, &reason, now)
			if err := rec.save(ctx, repos); err != nil {
				return err
			}
			mutated = true
			result.Outcome = OutcomeHeldForReview
		}

		result.Status = rec.status()
		if mutated {
			if err := repos.CreateEvent(ctx, transitionEvent(rec, oldStatus, result.Outcome, source, resultCode, now)); err != nil {
				return err
			}
		}

		if in.Callback != nil {
			in.Callback.RecordKind = rec.kind()
			in.Callback.RecordID = rec.id()
			in.Callback.Outcome = string(result.Outcome)
			in.Callback.CreatedAt = now
			if err := repos.CreateCallback(ctx, in.Callback); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncReconciliation(source, string(result.Outcome))
	logger := s.logger.WithFields(logrus.Fields{
		"record_kind":       result.Kind,
		"reference":         result.Reference,
		"merchant_order_id": result.MerchantOrderID,
		"provider":          in.Provider,
		"result_code":       resultCode,
		"source":            source,
		"outcome":           string(result.Outcome),
	})
	switch result.Outcome {
	case OutcomeHeldForReview:
		logger.WithField("error_kind", ErrorKind(ErrUnknownResultCode)).Warn("payment held for manual review")
	case OutcomeIgnoredTerminal:
		logger.Warn("result ignored for terminal payment")
	default:
		logger.Info("payment reconciled")
	}

	if completed != nil {
		s.notify(ctx, completed, accountID)
	}

	return result, nil
}

func preferPending(in *ReconcileInput) bool {
	switch in.Kind {
	case entity.RecordKindPendingPayment:
		return true
	case entity.RecordKindPayment:
		return false
	}
	return in.Context != nil && in.Context.PayFirst
}

// verifyRecordContext rejects callbacks whose embedded context or amount
// disagree with what was stored at checkout.
func verifyRecordContext(rec *record, in *ReconcileInput) error {
	if in.Kind != "" && in.Kind != rec.kind() {
		// A converted pay-first record lives on as a registered payment.
		if !(in.Kind == entity.RecordKindPendingPayment && !rec.isPending()) {
			return ErrPaymentNotFound
		}
	}

	if code := strings.TrimSpace(in.Provider); code != "" && !strings.EqualFold(code, rec.provider()) {
		return fmt.Errorf("%w: provider %s does not own this payment", ErrContextMismatch, code)
	}

	// The gateway signs the merchant order id, not the reference used for lookup.
	if moid := strings.TrimSpace(in.Key.MerchantOrderID); moid != "" && moid != rec.merchantOrderID() {
		return fmt.Errorf("%w: merchant order id", ErrContextMismatch)
	}

	if raw := strings.TrimSpace(in.RawAmount); raw != "" {
		amount, err := provider.ParseAmount(raw)
		if err != nil || amount != rec.amountMinor() {
			return fmt.Errorf("%w: amount %q does not match stored amount", ErrContextMismatch, raw)
		}
	}

	c := in.Context
	if c == nil {
		return nil
	}
	if c.CourseID != rec.courseID() {
		return fmt.Errorf("%w: course id", ErrContextMismatch)
	}

	switch {
	case rec.isPending():
		if !c.PayFirst || normalizeEmail(c.Email) != normalizeEmail(rec.pending.Email) {
			return fmt.Errorf("%w: pay-first email", ErrContextMismatch)
		}
	case c.PayFirst:
		// Pay-first checkout already converted at registration; the course
		// id is all that survives the conversion.
	default:
		if c.AccountID != rec.payment.AccountID {
			return fmt.Errorf("%w: account id", ErrContextMismatch)
		}
	}
	return nil
}

func transitionEvent(rec *record, oldStatus entity.PaymentStatus, outcome Outcome, source, resultCode string, now time.Time) *entity.PaymentEvent {
	eventType := "payment_" + string(outcome)

	old := oldStatus
	code := resultCode
	return &entity.PaymentEvent{
		RecordKind: rec.kind(),
		RecordID:   rec.id(),
		EventType:  eventType,
		Source:     source,
		OldStatus:  &old,
		NewStatus:  rec.status(),
		ResultCode: &code,
		CreatedAt:  now,
	}
}
