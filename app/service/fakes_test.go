package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/cache"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/notification"
	"github.com/vibast-solutions/ms-go-course-payments/app/provider"
	"github.com/vibast-solutions/ms-go-course-payments/app/repository"
	"github.com/vibast-solutions/ms-go-course-payments/config"
)

const (
	testMerchantCode = "D1234"
	testAPIKey       = "secret-key"
)

// fakeDB is an in-memory store. txMu serializes transactions the way the
// row lock does in MySQL; dataMu guards the maps for non-transactional
// readers.
type fakeDB struct {
	txMu   sync.Mutex
	dataMu sync.Mutex

	payments    map[uint64]*entity.Payment
	pending     map[uint64]*entity.PendingPayment
	enrollments map[[2]uint64]*entity.Enrollment
	accounts    map[uint64]*entity.Account
	courses     map[uint64]*entity.Course
	events      []*entity.PaymentEvent
	callbacks   []*entity.PaymentCallback
	nextID      uint64
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		payments:    map[uint64]*entity.Payment{},
		pending:     map[uint64]*entity.PendingPayment{},
		enrollments: map[[2]uint64]*entity.Enrollment{},
		accounts:    map[uint64]*entity.Account{},
		courses:     map[uint64]*entity.Course{},
		nextID:      1,
	}
}

type fakeSnapshot struct {
	payments    map[uint64]entity.Payment
	pending     map[uint64]entity.PendingPayment
	enrollments map[[2]uint64]entity.Enrollment
	accounts    map[uint64]entity.Account
	events      int
	callbacks   int
}

func (db *fakeDB) snapshot() fakeSnapshot {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()

	snap := fakeSnapshot{
		payments:    make(map[uint64]entity.Payment, len(db.payments)),
		pending:     make(map[uint64]entity.PendingPayment, len(db.pending)),
		enrollments: make(map[[2]uint64]entity.Enrollment, len(db.enrollments)),
		accounts:    make(map[uint64]entity.Account, len(db.accounts)),
		events:      len(db.events),
		callbacks:   len(db.callbacks),
	}
	for id, item := range db.payments {
		snap.payments[id] = *item
	}
	for id, item := range db.pending {
		snap.pending[id] = *item
	}
	for key, item := range db.enrollments {
		snap.enrollments[key] = *item
	}
	for id, item := range db.accounts {
		snap.accounts[id] = *item
	}
	return snap
}

func (db *fakeDB) restore(snap fakeSnapshot) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()

	db.payments = make(map[uint64]*entity.Payment, len(snap.payments))
	for id, item := range snap.payments {
		copyItem := item
		db.payments[id] = &copyItem
	}
	db.pending = make(map[uint64]*entity.PendingPayment, len(snap.pending))
	for id, item := range snap.pending {
		copyItem := item
		db.pending[id] = &copyItem
	}
	db.enrollments = make(map[[2]uint64]*entity.Enrollment, len(snap.enrollments))
	for key, item := range snap.enrollments {
		copyItem := item
		db.enrollments[key] = &copyItem
	}
	db.accounts = make(map[uint64]*entity.Account, len(snap.accounts))
	for id, item := range snap.accounts {
		copyItem := item
		db.accounts[id] = &copyItem
	}
	db.events = db.events[:snap.events]
	db.callbacks = db.callbacks[:snap.callbacks]
}

func (db *fakeDB) WithTx(ctx context.Context, fn func(repos repository.TxRepositories) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(&fakeTx{db: db}); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *fakeDB) id() uint64 {
	id := db.nextID
	db.nextID++
	return id
}

func (db *fakeDB) addCourse(course *entity.Course) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	db.courses[course.ID] = course
}

func (db *fakeDB) addAccount(account *entity.Account) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	db.accounts[account.ID] = account
}

func (db *fakeDB) addPayment(payment *entity.Payment) *entity.Payment {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	if payment.ID == 0 {
		payment.ID = db.id()
	}
	copyItem := *payment
	db.payments[payment.ID] = &copyItem
	return payment
}

func (db *fakeDB) addPending(pending *entity.PendingPayment) *entity.PendingPayment {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	if pending.ID == 0 {
		pending.ID = db.id()
	}
	copyItem := *pending
	db.pending[pending.ID] = &copyItem
	return pending
}

func (db *fakeDB) addEnrollment(accountID, courseID uint64) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	db.enrollments[[2]uint64{accountID, courseID}] = &entity.Enrollment{ID: db.id(), AccountID: accountID, CourseID: courseID}
}

func (db *fakeDB) payment(id uint64) *entity.Payment {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	item, ok := db.payments[id]
	if !ok {
		return nil
	}
	copyItem := *item
	return &copyItem
}

func (db *fakeDB) pendingByID(id uint64) *entity.PendingPayment {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	item, ok := db.pending[id]
	if !ok {
		return nil
	}
	copyItem := *item
	return &copyItem
}

func (db *fakeDB) enrollmentCount() int {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	return len(db.enrollments)
}

func (db *fakeDB) eventCount() int {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	return len(db.events)
}

func (db *fakeDB) callbackRows() []entity.PaymentCallback {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	out := make([]entity.PaymentCallback, 0, len(db.callbacks))
	for _, item := range db.callbacks {
		out = append(out, *item)
	}
	return out
}

func matchKey(key repository.LookupKey, reference, merchantOrderID string) bool {
	if key.Reference != "" {
		return key.Reference == reference
	}
	return key.MerchantOrderID == merchantOrderID
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) LockPayment(_ context.Context, key repository.LookupKey) (*entity.Payment, error) {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	for _, item := range t.db.payments {
		if matchKey(key, item.Reference, item.MerchantOrderID) {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) LockPendingPayment(_ context.Context, key repository.LookupKey) (*entity.PendingPayment, error) {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	for _, item := range t.db.pending {
		if matchKey(key, item.Reference, item.MerchantOrderID) {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) UpdatePaymentState(_ context.Context, payment *entity.Payment) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	stored, ok := t.db.payments[payment.ID]
	if !ok || stored.Status == entity.PaymentStatusCompleted {
		return repository.ErrPaymentStateConflict
	}
	stored.Status = payment.Status
	stored.ReviewReason = payment.ReviewReason
	stored.CompletedAt = payment.CompletedAt
	stored.UpdatedAt = payment.UpdatedAt
	return nil
}

func (t *fakeTx) UpdatePendingPaymentState(_ context.Context, pending *entity.PendingPayment) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	stored, ok := t.db.pending[pending.ID]
	if !ok || stored.Status == entity.PaymentStatusCompleted {
		return repository.ErrPaymentStateConflict
	}
	stored.Status = pending.Status
	stored.ReviewReason = pending.ReviewReason
	stored.CompletedAt = pending.CompletedAt
	stored.UpdatedAt = pending.UpdatedAt
	return nil
}

func (t *fakeTx) CreatePayment(_ context.Context, payment *entity.Payment) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	for _, item := range t.db.payments {
		if item.Reference == payment.Reference || item.MerchantOrderID == payment.MerchantOrderID {
			return repository.ErrPaymentAlreadyExists
		}
	}
	payment.ID = t.db.id()
	copyItem := *payment
	t.db.payments[payment.ID] = &copyItem
	return nil
}

func (t *fakeTx) CreatePendingPayment(_ context.Context, pending *entity.PendingPayment) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	for _, item := range t.db.pending {
		if item.Reference == pending.Reference || item.MerchantOrderID == pending.MerchantOrderID {
			return repository.ErrPendingPaymentAlreadyExists
		}
	}
	pending.ID = t.db.id()
	copyItem := *pending
	t.db.pending[pending.ID] = &copyItem
	return nil
}

func (t *fakeTx) DeletePendingPayment(_ context.Context, id uint64) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	if _, ok := t.db.pending[id]; !ok {
		return repository.ErrPendingPaymentNotFound
	}
	delete(t.db.pending, id)
	return nil
}

func (t *fakeTx) CreateEnrollment(_ context.Context, enrollment *entity.Enrollment) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	key := [2]uint64{enrollment.AccountID, enrollment.CourseID}
	if _, ok := t.db.enrollments[key]; ok {
		return repository.ErrEnrollmentAlreadyExists
	}
	enrollment.ID = t.db.id()
	copyItem := *enrollment
	t.db.enrollments[key] = &copyItem
	return nil
}

func (t *fakeTx) FindAccountByEmail(_ context.Context, email string) (*entity.Account, error) {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	for _, item := range t.db.accounts {
		if item.Email == email {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) CreateAccount(_ context.Context, account *entity.Account) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	for _, item := range t.db.accounts {
		if item.Email == account.Email {
			return repository.ErrAccountAlreadyExists
		}
	}
	account.ID = t.db.id()
	copyItem := *account
	t.db.accounts[account.ID] = &copyItem
	return nil
}

func (t *fakeTx) CreateEvent(_ context.Context, event *entity.PaymentEvent) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	copyItem := *event
	t.db.events = append(t.db.events, &copyItem)
	return nil
}

func (t *fakeTx) CreateCallback(_ context.Context, callback *entity.PaymentCallback) error {
	t.db.dataMu.Lock()
	defer t.db.dataMu.Unlock()
	copyItem := *callback
	t.db.callbacks = append(t.db.callbacks, &copyItem)
	return nil
}

type fakePaymentRepo struct{ db *fakeDB }

func (r *fakePaymentRepo) FindByID(_ context.Context, id uint64) (*entity.Payment, error) {
	return r.db.payment(id), nil
}

func (r *fakePaymentRepo) FindByReference(_ context.Context, reference string) (*entity.Payment, error) {
	return r.find(func(p *entity.Payment) bool { return p.Reference == reference }), nil
}

func (r *fakePaymentRepo) FindByMerchantOrderID(_ context.Context, merchantOrderID string) (*entity.Payment, error) {
	return r.find(func(p *entity.Payment) bool { return p.MerchantOrderID == merchantOrderID }), nil
}

func (r *fakePaymentRepo) ListStalePending(_ context.Context, before time.Time, _ int32) ([]*entity.Payment, error) {
	return r.list(func(p *entity.Payment) bool {
		return p.Status == entity.PaymentStatusPending && p.ReviewReason == nil && !p.UpdatedAt.After(before)
	}), nil
}

func (r *fakePaymentRepo) ListExpiredPending(_ context.Context, cutoff time.Time, _ int32) ([]*entity.Payment, error) {
	return r.list(func(p *entity.Payment) bool {
		expiry := p.CreatedAt
		if p.ExpiresAt != nil {
			expiry = *p.ExpiresAt
		}
		return p.Status == entity.PaymentStatusPending && p.ReviewReason == nil && !expiry.After(cutoff)
	}), nil
}

func (r *fakePaymentRepo) ListHeldForReview(_ context.Context, _ int32) ([]*entity.Payment, error) {
	return r.list(func(p *entity.Payment) bool {
		return p.Status == entity.PaymentStatusPending && p.ReviewReason != nil
	}), nil
}

func (r *fakePaymentRepo) find(match func(*entity.Payment) bool) *entity.Payment {
	items := r.list(match)
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

func (r *fakePaymentRepo) list(match func(*entity.Payment) bool) []*entity.Payment {
	r.db.dataMu.Lock()
	defer r.db.dataMu.Unlock()
	out := make([]*entity.Payment, 0)
	for _, item := range r.db.payments {
		if match(item) {
			copyItem := *item
			out = append(out, &copyItem)
		}
	}
	return out
}

type fakePendingRepo struct{ db *fakeDB }

func (r *fakePendingRepo) FindByID(_ context.Context, id uint64) (*entity.PendingPayment, error) {
	return r.db.pendingByID(id), nil
}

func (r *fakePendingRepo) FindByReference(_ context.Context, reference string) (*entity.PendingPayment, error) {
	return r.find(func(p *entity.PendingPayment) bool { return p.Reference == reference }), nil
}

func (r *fakePendingRepo) FindByMerchantOrderID(_ context.Context, merchantOrderID string) (*entity.PendingPayment, error) {
	return r.find(func(p *entity.PendingPayment) bool { return p.MerchantOrderID == merchantOrderID }), nil
}

func (r *fakePendingRepo) ListStalePending(_ context.Context, before time.Time, _ int32) ([]*entity.PendingPayment, error) {
	return r.list(func(p *entity.PendingPayment) bool {
		return p.Status == entity.PaymentStatusPending && p.ReviewReason == nil && !p.UpdatedAt.After(before)
	}), nil
}

func (r *fakePendingRepo) ListExpiredPending(_ context.Context, cutoff time.Time, _ int32) ([]*entity.PendingPayment, error) {
	return r.list(func(p *entity.PendingPayment) bool {
		expiry := p.CreatedAt
		if p.ExpiresAt != nil {
			expiry = *p.ExpiresAt
		}
		return p.Status == entity.PaymentStatusPending && p.ReviewReason == nil && !expiry.After(cutoff)
	}), nil
}

func (r *fakePendingRepo) ListHeldForReview(_ context.Context, _ int32) ([]*entity.PendingPayment, error) {
	return r.list(func(p *entity.PendingPayment) bool {
		return p.Status == entity.PaymentStatusPending && p.ReviewReason != nil
	}), nil
}

func (r *fakePendingRepo) find(match func(*entity.PendingPayment) bool) *entity.PendingPayment {
	items := r.list(match)
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

func (r *fakePendingRepo) list(match func(*entity.PendingPayment) bool) []*entity.PendingPayment {
	r.db.dataMu.Lock()
	defer r.db.dataMu.Unlock()
	out := make([]*entity.PendingPayment, 0)
	for _, item := range r.db.pending {
		if match(item) {
			copyItem := *item
			out = append(out, &copyItem)
		}
	}
	return out
}

type fakeEnrollmentRepo struct{ db *fakeDB }

func (r *fakeEnrollmentRepo) Exists(_ context.Context, accountID, courseID uint64) (bool, error) {
	r.db.dataMu.Lock()
	defer r.db.dataMu.Unlock()
	_, ok := r.db.enrollments[[2]uint64{accountID, courseID}]
	return ok, nil
}

type fakeAccountRepo struct{ db *fakeDB }

func (r *fakeAccountRepo) FindByID(_ context.Context, id uint64) (*entity.Account, error) {
	r.db.dataMu.Lock()
	defer r.db.dataMu.Unlock()
	item, ok := r.db.accounts[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type fakeCourseRepo struct{ db *fakeDB }

func (r *fakeCourseRepo) FindByID(_ context.Context, id uint64) (*entity.Course, error) {
	r.db.dataMu.Lock()
	defer r.db.dataMu.Unlock()
	item, ok := r.db.courses[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type fakeProvider struct {
	code        string
	checkout    func(ctx context.Context, input *provider.CheckoutInput) (*provider.CheckoutOutput, error)
	status      func(ctx context.Context, query *provider.StatusQuery) (*provider.StatusResult, error)
	statusCalls int32
}

func (p *fakeProvider) Code() string { return p.code }

func (p *fakeProvider) CreateCheckout(ctx context.Context, input *provider.CheckoutInput) (*provider.CheckoutOutput, error) {
	return p.checkout(ctx, input)
}

func (p *fakeProvider) VerifyAndParseCallback(context.Context, *provider.CallbackRequest) (*provider.Callback, error) {
	return nil, provider.ErrIgnoredCallback
}

func (p *fakeProvider) CheckStatus(ctx context.Context, query *provider.StatusQuery) (*provider.StatusResult, error) {
	atomic.AddInt32(&p.statusCalls, 1)
	return p.status(ctx, query)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*notification.PaymentNotification
	err  error
}

func (n *fakeNotifier) PaymentCompleted(_ context.Context, msg *notification.PaymentNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	copyMsg := *msg
	n.sent = append(n.sent, &copyMsg)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeLocker struct {
	held bool
	err  error
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	if l.held {
		return "", cache.ErrLockHeld
	}
	return "token", nil
}

func (l *fakeLocker) Unlock(context.Context, string, string) error { return nil }

type fakeTokens struct{}

func (fakeTokens) IssueAccessToken(account *entity.Account) (string, time.Time, error) {
	return "token-for-" + account.Email, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type serviceFixture struct {
	db       *fakeDB
	svc      *PaymentService
	notifier *fakeNotifier
	locker   *fakeLocker
	gateway  *fakeProvider
	now      time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := newFakeDB()
	notifier := &fakeNotifier{}
	locker := &fakeLocker{}
	gateway := &fakeProvider{
		code: "fakepay",
		status: func(context.Context, *provider.StatusQuery) (*provider.StatusResult, error) {
			return &provider.StatusResult{ResultCode: provider.ResultInProgress}, nil
		},
		checkout: func(_ context.Context, input *provider.CheckoutInput) (*provider.CheckoutOutput, error) {
			paymentURL := "https://pay.example/" + input.MerchantOrderID
			return &provider.CheckoutOutput{Reference: "REF-" + input.MerchantOrderID, PaymentURL: &paymentURL}, nil
		},
	}
	duitku := provider.NewDuitkuProvider(provider.DuitkuConfig{
		MerchantCode: testMerchantCode,
		APIKey:       testAPIKey,
		BaseURL:      "http://127.0.0.1:1",
		CallbackURL:  "https://lms.example/webhooks/duitku",
	})

	svc := NewPaymentService(
		db,
		&fakePaymentRepo{db: db},
		&fakePendingRepo{db: db},
		&fakeEnrollmentRepo{db: db},
		&fakeAccountRepo{db: db},
		&fakeCourseRepo{db: db},
		provider.NewRegistry(duitku, gateway),
		locker,
		notifier,
		fakeTokens{},
		config.PaymentsConfig{
			DefaultProvider:     provider.CodeDuitku,
			OrderIDPrefix:       "LMS",
			StatusPollTimeout:   time.Second,
			PollLockTTL:         time.Second,
			NotificationTimeout: time.Second,
			PendingTimeout:      24 * time.Hour,
			ReconcileStaleAfter: 15 * time.Minute,
			JobBatchSize:        50,
		},
		"https://lms.example",
	)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	db.addAccount(&entity.Account{ID: 1001, Email: "a1@example.com", Name: "Account One"})
	db.addCourse(&entity.Course{ID: 2001, Title: "Go Basics", PriceMinor: 100000, Currency: "IDR", IsPublished: true})

	return &serviceFixture{db: db, svc: svc, notifier: notifier, locker: locker, gateway: gateway, now: now}
}

func (f *serviceFixture) seedPayment(reference, providerCode string, status entity.PaymentStatus) *entity.Payment {
	return f.db.addPayment(&entity.Payment{
		AccountID:       1001,
		CourseID:        2001,
		Provider:        providerCode,
		Reference:       reference,
		MerchantOrderID: "LMS-" + reference,
		AmountMinor:     100000,
		Currency:        "IDR",
		Status:          status,
		CreatedAt:       f.now.Add(-2 * time.Hour),
		UpdatedAt:       f.now.Add(-2 * time.Hour),
	})
}

func (f *serviceFixture) seedPending(reference, providerCode string, status entity.PaymentStatus) *entity.PendingPayment {
	return f.db.addPending(&entity.PendingPayment{
		Email:           "payfirst@example.com",
		Name:            "Pay First",
		Phone:           "0812",
		CourseID:        2001,
		Provider:        providerCode,
		Reference:       reference,
		MerchantOrderID: "LMS-" + reference,
		AmountMinor:     100000,
		Currency:        "IDR",
		Status:          status,
		CreatedAt:       f.now.Add(-2 * time.Hour),
		UpdatedAt:       f.now.Add(-2 * time.Hour),
	})
}

func duitkuCallback(reference, merchantOrderID, resultCode, amount, additional string) *provider.CallbackRequest {
	sum := md5.Sum([]byte(testMerchantCode + amount + merchantOrderID + testAPIKey))
	form := url.Values{}
	form.Set("merchantCode", testMerchantCode)
	form.Set("amount", amount)
	form.Set("merchantOrderId", merchantOrderID)
	form.Set("reference", reference)
	form.Set("resultCode", resultCode)
	form.Set("additionalParam", additional)
	form.Set("signature", hex.EncodeToString(sum[:]))
	return &provider.CallbackRequest{Form: form}
}

func registeredContext(accountID, courseID uint64) string {
	return provider.CallbackContext{AccountID: accountID, CourseID: courseID}.Encode()
}

func payFirstContext(email string, courseID uint64) string {
	return provider.CallbackContext{Email: email, CourseID: courseID, PayFirst: true}.Encode()
}

func lookupByReference(reference string) repository.LookupKey {
	return repository.LookupKey{Reference: reference}
}
