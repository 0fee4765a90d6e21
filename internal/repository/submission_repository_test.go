package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thetankguide/featuretank/internal/models"
)

func TestFormatSubmissionID(t *testing.T) {
	assert.Equal(t, "FT-0001", FormatSubmissionID(1))
	assert.Equal(t, "FT-0042", FormatSubmissionID(42))
	assert.Equal(t, "FT-12345", FormatSubmissionID(12345))
}

func TestCreateAllocatesSequentialIDs(t *testing.T) {
	repo, _ := newRepo(t)

	first := createSubmission(t, repo, newSubmission("a@example.com", "One", 0, 0))
	second := createSubmission(t, repo, newSubmission("b@example.com", "Two", 0, 0))

	assert.Equal(t, "FT-0001", first.ID)
	assert.Equal(t, "FT-0002", second.ID)
}

func TestCreateContinuesPastPaddingWidth(t *testing.T) {
	repo, db := newRepo(t)

	seed := newSubmission("a@example.com", "Seed", 0, 0)
	seed.ID = "FT-9999"
	require.NoError(t, db.Create(seed).Error)

	next := createSubmission(t, repo, newSubmission("a@example.com", "Next", 0, 0))
	assert.Equal(t, "FT-10000", next.ID)

	after := createSubmission(t, repo, newSubmission("a@example.com", "After", 0, 0))
	assert.Equal(t, "FT-10001", after.ID)
}

// forceSubmissionID rewrites the ID of the next `times` submission inserts to
// id, simulating a writer that claimed the allocated ID first. It returns a
// counter of insert attempts.
func forceSubmissionID(t *testing.T, db *gorm.DB, id string, times int) *int {
	t.Helper()
	attempts := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:force_submission_id", func(tx *gorm.DB) {
		sub, ok := tx.Statement.Dest.(*models.Submission)
		if !ok {
			return
		}
		attempts++
		if attempts <= times {
			sub.ID = id
		}
	})
	require.NoError(t, err)
	return &attempts
}

func TestCreateRetriesOnceAfterIDCollision(t *testing.T) {
	repo, db := newRepo(t)
	createSubmission(t, repo, newSubmission("a@example.com", "Seed", 0, 0))

	attempts := forceSubmissionID(t, db, "FT-0001", 1)
	sub := createSubmission(t, repo, newSubmission("b@example.com", "Late", 0, 0))

	assert.Equal(t, 2, *attempts)
	assert.Equal(t, "FT-0002", sub.ID)
}

func TestCreateConflictsAfterSecondCollision(t *testing.T) {
	repo, db := newRepo(t)
	createSubmission(t, repo, newSubmission("a@example.com", "Seed", 0, 0))

	attempts := forceSubmissionID(t, db, "FT-0001", 2)
	err := repo.Create(context.Background(), newSubmission("b@example.com", "Late", 0, 0))

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, 2, *attempts)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateSkipsNonNumericIDs(t *testing.T) {
	repo, db := newRepo(t)
	createSubmission(t, repo, newSubmission("a@example.com", "Seed", 0, 0))

	stray := newSubmission("a@example.com", "Imported", 0, 0)
	stray.ID = "FT-zzzz"
	require.NoError(t, db.Create(stray).Error)
	odd := newSubmission("a@example.com", "Imported again", 0, 0)
	odd.ID = "FT-00a1"
	require.NoError(t, db.Create(odd).Error)

	next := createSubmission(t, repo, newSubmission("b@example.com", "Next", 0, 0))
	assert.Equal(t, "FT-0002", next.ID)
}

func TestCreateConcurrentIntakesGetDistinctIDs(t *testing.T) {
	repo, _ := newRepo(t)

	const n = 20
	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := newSubmission("racer@example.com", "Tank "+strconv.Itoa(i), 0, 0)
			errs[i] = repo.Create(context.Background(), sub)
			ids[i] = sub.ID
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	nums := make([]int, 0, n)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		num, err := strconv.Atoi(strings.TrimPrefix(id, models.SubmissionIDPrefix))
		require.NoError(t, err)
		nums = append(nums, num)
	}
	sort.Ints(nums)
	for i, num := range nums {
		assert.Equal(t, i+1, num)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.GetByID(context.Background(), "FT-0404")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTankNamesByEmail(t *testing.T) {
	repo, _ := newRepo(t)
	createSubmission(t, repo, newSubmission("a@example.com", "Reef", 0, 0))
	createSubmission(t, repo, newSubmission("a@example.com", "Creek", 0, 0))
	createSubmission(t, repo, newSubmission("b@example.com", "Other", 0, 0))

	names, err := repo.TankNamesByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Reef", "Creek"}, names)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	repo, db := newRepo(t)
	sub := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 5, 6))
	amount := 5.0
	conf := PaymentConfirmation{
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
		CustomerEmail:   "paid@example.com",
		Amount:          &amount,
		ConfirmedAt:     time.Now(),
	}

	updated, applied, err := repo.MarkPaid(context.Background(), sub.ID, conf)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, models.StatusSubmitted, updated.Status)
	require.NotNil(t, updated.StripePaymentIntentID)
	assert.Equal(t, "pi_1", *updated.StripePaymentIntentID)

	_, applied, err = repo.MarkPaid(context.Background(), sub.ID, conf)
	require.NoError(t, err)
	assert.False(t, applied)

	var purchases []models.CreditPurchase
	require.NoError(t, db.Find(&purchases).Error)
	require.Len(t, purchases, 1)
	assert.Equal(t, 6, purchases[0].CreditsAdded)
	assert.Equal(t, "paid@example.com", purchases[0].UserEmail)
	assert.Equal(t, models.PurchaseStatusActive, purchases[0].Status)
	assert.Equal(t, models.PurchaseReasonInitial, purchases[0].Reason)
	require.NotNil(t, purchases[0].Amount)
	assert.Equal(t, 5.0, *purchases[0].Amount)
}

func TestMarkPaidConcurrentDeliveries(t *testing.T) {
	repo, db := newRepo(t)
	sub := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 2, 3))

	var wg sync.WaitGroup
	var mu sync.Mutex
	appliedCount := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, applied, err := repo.MarkPaid(context.Background(), sub.ID, PaymentConfirmation{PaymentIntentID: "pi_1"})
			assert.NoError(t, err)
			if applied {
				mu.Lock()
				appliedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, appliedCount)
	var count int64
	require.NoError(t, db.Model(&models.CreditPurchase{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMarkPaidWithoutCreditsSkipsPurchase(t *testing.T) {
	repo, db := newRepo(t)
	sub := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 1, 0))

	_, applied, err := repo.MarkPaid(context.Background(), sub.ID, PaymentConfirmation{})
	require.NoError(t, err)
	assert.True(t, applied)

	var count int64
	require.NoError(t, db.Model(&models.CreditPurchase{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMarkPaidUnknownSubmission(t *testing.T) {
	repo, _ := newRepo(t)
	_, _, err := repo.MarkPaid(context.Background(), "FT-9999", PaymentConfirmation{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarkExpired(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	pending := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 2, 3))
	paid := createSubmission(t, repo, newSubmission("a@example.com", "Creek", 2, 3))
	_, _, err := repo.MarkPaid(ctx, paid.ID, PaymentConfirmation{})
	require.NoError(t, err)

	changed, err := repo.MarkExpired(ctx, pending.ID, "")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkExpired(ctx, paid.ID, "")
	require.NoError(t, err)
	assert.False(t, changed)
	reloaded, err := repo.GetByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, reloaded.PaymentStatus)

	free := createSubmission(t, repo, newSubmission("a@example.com", "Pond", 0, 0))
	changed, err = repo.MarkExpired(ctx, free.ID, "")
	require.NoError(t, err)
	assert.False(t, changed)
	reloaded, err = repo.GetByID(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFree, reloaded.PaymentStatus)
	assert.Equal(t, models.StatusSubmitted, reloaded.Status)

	_, err = repo.MarkExpired(ctx, "FT-9999", "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarkExpiredKeepsNewerSession(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	sub := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 2, 3))
	require.NoError(t, repo.SetCheckoutSession(ctx, sub.ID, "cs_second"))

	changed, err := repo.MarkExpired(ctx, sub.ID, "cs_first")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.MarkExpired(ctx, sub.ID, "cs_second")
	require.NoError(t, err)
	assert.True(t, changed)
	reloaded, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.StripeCheckoutSessionID)
	assert.Equal(t, models.PaymentPending, reloaded.PaymentStatus)
}

func TestMarkRefunded(t *testing.T) {
	repo, db := newRepo(t)
	ctx := context.Background()
	sub := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 2, 3))
	_, _, err := repo.MarkPaid(ctx, sub.ID, PaymentConfirmation{PaymentIntentID: "pi_9"})
	require.NoError(t, err)

	applied, err := repo.MarkRefunded(ctx, sub.ID, "pi_9")
	require.NoError(t, err)
	assert.True(t, applied)

	reloaded, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, reloaded.PaymentStatus)
	assert.Zero(t, reloaded.RemainingCredits())

	var purchase models.CreditPurchase
	require.NoError(t, db.First(&purchase, "submission_id = ?", sub.ID).Error)
	assert.Equal(t, models.PurchaseStatusRefunded, purchase.Status)

	_, applied, err = repo.MarkPaid(ctx, sub.ID, PaymentConfirmation{PaymentIntentID: "pi_9"})
	require.NoError(t, err)
	assert.False(t, applied, "a replayed completion must not revive a refunded submission")

	applied, err = repo.MarkRefunded(ctx, sub.ID, "pi_9")
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = repo.MarkRefunded(ctx, "FT-9999", "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarkRefundedIgnoresUnpaid(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	pending := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 2, 3))
	free := createSubmission(t, repo, newSubmission("a@example.com", "Pond", 0, 0))

	for _, sub := range []*models.Submission{pending, free} {
		applied, err := repo.MarkRefunded(ctx, sub.ID, "")
		require.NoError(t, err)
		assert.False(t, applied)

		reloaded, err := repo.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.PaymentStatus, reloaded.PaymentStatus)
	}
}

func TestUpdateStatusPublishing(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	sub := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 0, 0))
	now := time.Now().UTC().Truncate(time.Second)

	_, err := repo.UpdateStatus(ctx, sub.ID, models.StatusPublished, nil, now)
	assert.ErrorIs(t, err, models.ErrValidation)
	reloaded, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, reloaded.Status)

	change, err := repo.UpdateStatus(ctx, sub.ID, models.StatusInReview, nil, now)
	require.NoError(t, err)
	assert.False(t, change.EnteredPublished())
	assert.Nil(t, change.Submission.PublishedAt)

	url := "https://thetankguide.com/features/reef"
	change, err = repo.UpdateStatus(ctx, sub.ID, models.StatusPublished, &url, now)
	require.NoError(t, err)
	assert.True(t, change.EnteredPublished())
	assert.Equal(t, models.StatusInReview, change.Previous)
	require.NotNil(t, change.Submission.PublishedURL)
	assert.Equal(t, url, *change.Submission.PublishedURL)
	require.NotNil(t, change.Submission.PublishedAt)

	change, err = repo.UpdateStatus(ctx, sub.ID, models.StatusPublished, nil, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, change.EnteredPublished())
	assert.Equal(t, url, *change.Submission.PublishedURL)

	_, err = repo.UpdateStatus(ctx, "FT-9999", models.StatusInReview, nil, now)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConsumeCredits(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	sub := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 2, 3))

	_, err := repo.ConsumeCredits(ctx, sub.ID, 1)
	assert.ErrorIs(t, err, models.ErrCreditsExhausted, "unpaid submissions have no credits")

	_, _, err = repo.MarkPaid(ctx, sub.ID, PaymentConfirmation{})
	require.NoError(t, err)

	updated, err := repo.ConsumeCredits(ctx, sub.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CreditsUsed)
	assert.Equal(t, 1, updated.RemainingCredits())

	_, err = repo.ConsumeCredits(ctx, sub.ID, 2)
	assert.ErrorIs(t, err, models.ErrCreditsExhausted)

	updated, err = repo.ConsumeCredits(ctx, sub.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, updated.RemainingCredits())

	_, err = repo.ConsumeCredits(ctx, "FT-9999", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListAndStats(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	free := createSubmission(t, repo, newSubmission("a@example.com", "Free", 0, 0))
	paid := createSubmission(t, repo, newSubmission("b@example.com", "Paid", 5, 6))
	createSubmission(t, repo, newSubmission("c@example.com", "Pending", 2, 3))
	_, _, err := repo.MarkPaid(ctx, paid.ID, PaymentConfirmation{})
	require.NoError(t, err)
	_, err = repo.ConsumeCredits(ctx, paid.ID, 2)
	require.NoError(t, err)

	page, err := repo.List(ctx, models.SubmissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Submissions, 3)
	assert.Equal(t, DefaultPageSize, page.Limit)

	page, err = repo.List(ctx, models.SubmissionFilter{Status: models.StatusSubmitted, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Submissions, 1)

	page, err = repo.List(ctx, models.SubmissionFilter{Limit: 1000, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Limit)
	assert.Len(t, page.Submissions, 1)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSubmissions)
	assert.Equal(t, int64(1), stats.PaidSubmissions)
	assert.Equal(t, 5.0, stats.Revenue)
	assert.Equal(t, int64(6), stats.CreditsPurchased)
	assert.Equal(t, 2.0, stats.AverageCreditsUsed)
	assert.Equal(t, int64(2), stats.ByStatus[models.StatusSubmitted])
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusPaymentPending])
	assert.Equal(t, int64(1), stats.ByPaymentStatus[models.PaymentFree])
	assert.Equal(t, int64(1), stats.ByPaymentStatus[models.PaymentPaid])
	_ = free

	require.NoError(t, repo.Ping(ctx))
}

func TestSetCheckoutSession(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	sub := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 2, 3))

	require.NoError(t, repo.SetCheckoutSession(ctx, sub.ID, "cs_77"))
	reloaded, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.StripeCheckoutSessionID)
	assert.Equal(t, "cs_77", *reloaded.StripeCheckoutSessionID)

	assert.ErrorIs(t, repo.SetCheckoutSession(ctx, "FT-9999", "cs_1"), models.ErrNotFound)
}

func TestNextCheckoutAttempt(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	pending := createSubmission(t, repo, newSubmission("a@example.com", "Reef", 2, 3))
	free := createSubmission(t, repo, newSubmission("a@example.com", "Pond", 0, 0))

	first, err := repo.NextCheckoutAttempt(ctx, pending.ID)
	require.NoError(t, err)
	second, err := repo.NextCheckoutAttempt(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)

	_, err = repo.NextCheckoutAttempt(ctx, free.ID)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = repo.NextCheckoutAttempt(ctx, "FT-9999")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
