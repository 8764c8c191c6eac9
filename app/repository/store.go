package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
)

// TxRepositories is the write surface available inside one transaction.
// Lock* methods take a row lock that is held until the transaction ends.
type TxRepositories interface {
	LockPayment(ctx context.Context, key LookupKey) (*entity.Payment, error)
	LockPendingPayment(ctx context.Context, key LookupKey) (*entity.PendingPayment, error)
	UpdatePaymentState(ctx context.Context, payment *entity.Payment) error
	UpdatePendingPaymentState(ctx context.Context, pending *entity.PendingPayment) error
	CreatePayment(ctx context.Context, payment *entity.Payment) error
	CreatePendingPayment(ctx context.Context, pending *entity.PendingPayment) error
	DeletePendingPayment(ctx context.Context, id uint64) error
	CreateEnrollment(ctx context.Context, enrollment *entity.Enrollment) error
	FindAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
	CreateAccount(ctx context.Context, account *entity.Account) error
	CreateEvent(ctx context.Context, event *entity.PaymentEvent) error
	CreateCallback(ctx context.Context, callback *entity.PaymentCallback) error
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithTx runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including on panic.
func (s *Store) WithTx(ctx context.Context, fn func(repos TxRepositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newTxRepositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txRepositories struct {
	payments  *PaymentRepository
	pending   *PendingPaymentRepository
	enrolls   *EnrollmentRepository
	accounts  *AccountRepository
	events    *PaymentEventRepository
	callbacks *PaymentCallbackRepository
}

func newTxRepositories(tx DBTX) *txRepositories {
	return &txRepositories{
		payments:  NewPaymentRepository(tx),
		pending:   NewPendingPaymentRepository(tx),
		enrolls:   NewEnrollmentRepository(tx),
		accounts:  NewAccountRepository(tx),
		events:    NewPaymentEventRepository(tx),
		callbacks: NewPaymentCallbackRepository(tx),
	}
}

func (r *txRepositories) LockPayment(ctx context.Context, key LookupKey) (*entity.Payment, error) {
	if key.IsZero() {
		return nil, nil
	}
	return r.payments.FindForUpdate(ctx, key)
}

func (r *txRepositories) LockPendingPayment(ctx context.Context, key LookupKey) (*entity.PendingPayment, error) {
	if key.IsZero() {
		return nil, nil
	}
	return r.pending.FindForUpdate(ctx, key)
}

func (r *txRepositories) UpdatePaymentState(ctx context.Context, payment *entity.Payment) error {
	return r.payments.UpdateState(ctx, payment)
}

func (r *txRepositories) UpdatePendingPaymentState(ctx context.Context, pending *entity.PendingPayment) error {
	return r.pending.UpdateState(ctx, pending)
}

func (r *txRepositories) CreatePayment(ctx context.Context, payment *entity.Payment) error {
	return r.payments.Create(ctx, payment)
}

func (r *txRepositories) CreatePendingPayment(ctx context.Context, pending *entity.PendingPayment) error {
	return r.pending.Create(ctx, pending)
}

func (r *txRepositories) DeletePendingPayment(ctx context.Context, id uint64) error {
	return r.pending.Delete(ctx, id)
}

func (r *txRepositories) CreateEnrollment(ctx context.Context, enrollment *entity.Enrollment) error {
	return r.enrolls.Create(ctx, enrollment)
}

func (r *txRepositories) FindAccountByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.accounts.FindByEmail(ctx, email)
}

func (r *txRepositories) CreateAccount(ctx context.Context, account *entity.Account) error {
	return r.accounts.Create(ctx, account)
}

func (r *txRepositories) CreateEvent(ctx context.Context, event *entity.PaymentEvent) error {
	return r.events.Create(ctx, event)
}

func (r *txRepositories) CreateCallback(ctx context.Context, callback *entity.PaymentCallback) error {
	return r.callbacks.Create(ctx, callback)
}
