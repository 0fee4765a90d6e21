package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/thetankguide/featuretank/internal/repository"
	"github.com/thetankguide/featuretank/pkg/database"
	"github.com/thetankguide/featuretank/pkg/email"
	"github.com/thetankguide/featuretank/pkg/payment"
	"github.com/thetankguide/featuretank/pkg/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

type fakeCheckout struct {
	mu       sync.Mutex
	requests []payment.CheckoutRequest
	err      error
}

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.CheckoutSession{
		ID:  "cs_" + req.SubmissionID,
		URL: "https://checkout.stripe.test/" + req.SubmissionID,
	}, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	received  []email.Notice
	confirmed []email.Notice
	published []email.PublishedNotice
	err       error
}

func (r *recordingNotifier) SubmissionReceived(_ context.Context, n email.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, n)
	return r.err
}

func (r *recordingNotifier) PaymentConfirmed(_ context.Context, n email.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, n)
	return r.err
}

func (r *recordingNotifier) Published(_ context.Context, n email.PublishedNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, n)
	return r.err
}

type stubFetcher struct {
	metadata map[string]string
	err      error
}

func (s *stubFetcher) PaymentIntentMetadata(context.Context, string) (map[string]string, error) {
	return s.metadata, s.err
}

type harness struct {
	db            *gorm.DB
	submissions   *repository.SubmissionRepository
	users         *repository.UserRepository
	purchases     *repository.CreditPurchaseRepository
	checkout      *fakeCheckout
	notifier      *recordingNotifier
	notifications *Notifications
	fetcher       *stubFetcher
	intake        *SubmissionService
	lifecycle     *LifecycleService
}

const webhookSecret = "whsec_test"

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()
	db := newTestDB(t)
	h := &harness{
		db:          db,
		submissions: repository.NewSubmissionRepository(db, log),
		users:       repository.NewUserRepository(db),
		purchases:   repository.NewCreditPurchaseRepository(db),
		checkout:    &fakeCheckout{},
		notifier:    &recordingNotifier{},
		fetcher:     &stubFetcher{},
	}
	h.notifications = NewNotifications(h.notifier, log)
	h.intake = NewSubmissionService(h.submissions, h.users, h.checkout, h.notifications, utils.NewValidator(), log)
	h.lifecycle = NewLifecycleService(h.submissions, payment.NewSignatureVerifier(webhookSecret), h.fetcher, h.notifications, log)
	return h
}
