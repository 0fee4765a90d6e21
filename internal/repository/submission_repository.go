package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/pkg/database"
)

const (
	// idWidth is the zero-padded width of the numeric suffix.
	idWidth = 4

	// allocatorLockKey serializes ID allocation across Postgres sessions.
	allocatorLockKey = 7_134_022

	DefaultPageSize = 50
	MaxPageSize     = 200
)

// PaymentConfirmation carries what a completed checkout tells us.
type PaymentConfirmation struct {
	SessionID       string
	PaymentIntentID string
	CustomerEmail   string
	// Amount is in major currency units; nil when the gateway omitted it.
	Amount      *float64
	ConfirmedAt time.Time
}

// StatusChange is the outcome of an operator status update.
type StatusChange struct {
	Submission *models.Submission
	Previous   models.SubmissionStatus
}

// EnteredPublished reports whether this change moved the submission into
// the published state.
func (c StatusChange) EnteredPublished() bool {
	return c.Previous != models.StatusPublished && c.Submission.Status == models.StatusPublished
}

type SubmissionRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSubmissionRepository(db *gorm.DB, log *zap.Logger) *SubmissionRepository {
	return &SubmissionRepository{db: db, log: log.Named("submission_repository")}
}

// Create allocates the next sequential ID and inserts sub in one transaction.
// A unique violation on the ID triggers exactly one reallocation.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockAllocator(tx); err != nil {
				return err
			}
			id, err := allocateNextID(tx)
			if err != nil {
				return err
			}
			sub.ID = id
			return tx.Create(sub).Error
		})
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return fmt.Errorf("insert submission: %w", err)
		}
		lastErr = err
		r.log.Warn("submission id collision, reallocating",
			zap.String("submission_id", sub.ID), zap.Int("attempt", attempt+1))
	}
	return models.NewConflictError("could not allocate a submission id", lastErr)
}

func lockAllocator(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", allocatorLockKey).Error
}

// allocateNextID reads the greatest existing numeric ID and increments its
// suffix. Ordering by length first keeps FT-10000 after FT-9999. IDs whose
// suffix is not a number are skipped.
func allocateNextID(tx *gorm.DB) (string, error) {
	rows, err := tx.Model(&models.Submission{}).
		Select("id").
		Where("id LIKE ?", models.SubmissionIDPrefix+"%").
		Order("LENGTH(id) DESC").
		Order("id DESC").
		Rows()
	if err != nil {
		return "", err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		n, ok := parseSubmissionID(id)
		if ok {
			return FormatSubmissionID(n + 1), nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return FormatSubmissionID(1), nil
}

func parseSubmissionID(id string) (int, bool) {
	suffix := strings.TrimPrefix(id, models.SubmissionIDPrefix)
	if suffix == "" || strings.TrimLeft(suffix, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatSubmissionID renders the nth submission ID, e.g. FT-0042.
func FormatSubmissionID(n int) string {
	return fmt.Sprintf("%s%0*d", models.SubmissionIDPrefix, idWidth, n)
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "submission not found")
	}
	return &sub, nil
}

// TankNamesByEmail lists tank names previously submitted from email.
func (r *SubmissionRepository) TankNamesByEmail(ctx context.Context, email string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("user_email = ?", email).
		Pluck("tank_name", &names).Error
	return names, err
}

func (r *SubmissionRepository) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", id).
		Update("stripe_checkout_session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("submission not found")
	}
	return nil
}

// NextCheckoutAttempt bumps the checkout attempt counter of a submission that
// is still awaiting payment and returns the new value.
func (r *SubmissionRepository) NextCheckoutAttempt(ctx context.Context, id string) (int, error) {
	var attempt int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND payment_status = ?", id, models.PaymentPending).
			UpdateColumn("checkout_attempts", gorm.Expr("checkout_attempts + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Submission{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return models.NewNotFoundError("submission not found")
			}
			return models.NewValidationError("This submission is not awaiting payment.")
		}
		var attempts []int
		if err := tx.Model(&models.Submission{}).
			Where("id = ?", id).
			Pluck("checkout_attempts", &attempts).Error; err != nil {
			return err
		}
		if len(attempts) == 1 {
			attempt = attempts[0]
		}
		return nil
	})
	return attempt, err
}

// UpdateStatus overwrites the workflow status. Moving into published requires
// a URL, either supplied here or already on the record, and stamps
// published_at on entry.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, publishedURL *string, now time.Time) (*StatusChange, error) {
	var change StatusChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			return notFound(err, "submission not found")
		}
		change.Previous = sub.Status

		updates := map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}
		if status == models.StatusPublished {
			url := sub.PublishedURL
			if publishedURL != nil && strings.TrimSpace(*publishedURL) != "" {
				trimmed := strings.TrimSpace(*publishedURL)
				url = &trimmed
			}
			if url == nil || *url == "" {
				return models.NewValidationError("A published URL is required to publish a submission.")
			}
			updates["published_url"] = *url
			if sub.Status != models.StatusPublished || sub.PublishedAt == nil {
				updates["published_at"] = now
			}
		}

		if err := tx.Model(&models.Submission{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			return err
		}
		change.Submission = &sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// MarkPaid applies the first successful payment for a submission: it sets
// payment_status=paid and status=submitted and records the credit purchase
// in the same transaction. A submission already paid or refunded is left
// untouched and applied is false.
func (r *SubmissionRepository) MarkPaid(ctx context.Context, id string, conf PaymentConfirmation) (sub *models.Submission, applied bool, err error) {
	if conf.ConfirmedAt.IsZero() {
		conf.ConfirmedAt = time.Now()
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Submission
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return notFound(err, "submission not found")
		}
		sub = &current
		if current.PaymentStatus == models.PaymentPaid || current.PaymentStatus == models.PaymentRefunded {
			return nil
		}

		updates := map[string]interface{}{
			"payment_status": models.PaymentPaid,
			"status":         models.StatusSubmitted,
			"updated_at":     conf.ConfirmedAt,
		}
		if conf.SessionID != "" {
			updates["stripe_checkout_session_id"] = conf.SessionID
		}
		if conf.PaymentIntentID != "" {
			updates["stripe_payment_intent_id"] = conf.PaymentIntentID
		}

		// The guard makes the transition a compare-and-set: of two concurrent
		// deliveries only one sees a row affected.
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND payment_status = ?", id, models.PaymentPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if current.TotalCreditsPurchased > 0 {
			email := conf.CustomerEmail
			if email == "" {
				email = current.UserEmail
			}
			purchase := &models.CreditPurchase{
				ID:           uuid.NewString(),
				SubmissionID: id,
				UserEmail:    email,
				PurchaseDate: conf.ConfirmedAt,
				CreditsAdded: current.TotalCreditsPurchased,
				Amount:       conf.Amount,
				Reason:       models.PurchaseReasonInitial,
				Status:       models.PurchaseStatusActive,
			}
			if conf.PaymentIntentID != "" {
				pi := conf.PaymentIntentID
				purchase.StripePaymentIntentID = &pi
			}
			if err := tx.Create(purchase).Error; err != nil {
				return fmt.Errorf("record credit purchase: %w", err)
			}
		}

		return tx.First(sub, "id = ?", id).Error
	})
	if err != nil {
		return nil, false, err
	}
	return sub, applied, nil
}

// MarkExpired records an abandoned checkout by dropping the dead session
// reference. Only submissions still awaiting payment are touched; free, paid
// and refunded ones are left alone. When sessionID is set, a submission that
// has since moved on to a newer session keeps it.
func (r *SubmissionRepository) MarkExpired(ctx context.Context, id, sessionID string) (bool, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	q := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentPending)
	if sessionID != "" {
		q = q.Where("stripe_checkout_session_id IS NULL OR stripe_checkout_session_id = ?", sessionID)
	}
	res := q.Update("stripe_checkout_session_id", nil)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkRefunded flags a paid submission refunded and mirrors the status onto
// its credit purchases, matched by submission or by payment intent. It
// reports false without changes when the submission was never paid or is
// already refunded.
func (r *SubmissionRepository) MarkRefunded(ctx context.Context, id, paymentIntentID string) (bool, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND payment_status = ?", id, models.PaymentPaid).
			Update("payment_status", models.PaymentRefunded)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		q := tx.Model(&models.CreditPurchase{}).Where("submission_id = ?", id)
		if paymentIntentID != "" {
			q = tx.Model(&models.CreditPurchase{}).
				Where("submission_id = ? OR stripe_payment_intent_id = ?", id, paymentIntentID)
		}
		return q.Update("status", models.PurchaseStatusRefunded).Error
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// ConsumeCredits draws count editing credits in a single conditional update,
// so credits_used can never pass total_credits_purchased.
func (r *SubmissionRepository) ConsumeCredits(ctx context.Context, id string, count int) (*models.Submission, error) {
	if count < 1 {
		return nil, models.NewValidationError("Count must be at least 1.")
	}
	res := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND payment_status = ? AND credits_used + ? <= total_credits_purchased", id, models.PaymentPaid, count).
		UpdateColumn("credits_used", gorm.Expr("credits_used + ?", count))
	if res.Error != nil {
		return nil, res.Error
	}

	sub, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		if sub.PaymentStatus != models.PaymentPaid {
			return nil, models.NewCreditsExhaustedError("Credits are only available on paid submissions.")
		}
		return nil, models.NewCreditsExhaustedError(
			fmt.Sprintf("Only %d editing credits remain.", sub.RemainingCredits()))
	}
	return sub, nil
}

func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) (*models.SubmissionPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&models.Submission{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	page := &models.SubmissionPage{Limit: limit, Offset: offset, Submissions: []models.Submission{}}
	if err := q.Count(&page.Total).Error; err != nil {
		return nil, err
	}
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&page.Submissions).Error
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (r *SubmissionRepository) Stats(ctx context.Context) (*models.SubmissionStats, error) {
	db := r.db.WithContext(ctx)
	stats := &models.SubmissionStats{
		ByStatus:        map[models.SubmissionStatus]int64{},
		ByPaymentStatus: map[models.PaymentStatus]int64{},
	}

	if err := db.Model(&models.Submission{}).Count(&stats.TotalSubmissions).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Submission{}).Where("flagged_as_duplicate = ?", true).
		Count(&stats.FlaggedDuplicates).Error; err != nil {
		return nil, err
	}

	var paid struct {
		Count       int64
		Revenue     float64
		Credits     int64
		AverageUsed float64
	}
	err := db.Model(&models.Submission{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_price), 0) AS revenue, "+
			"COALESCE(SUM(total_credits_purchased), 0) AS credits, COALESCE(AVG(credits_used), 0) AS average_used").
		Where("payment_status = ?", models.PaymentPaid).
		Scan(&paid).Error
	if err != nil {
		return nil, err
	}
	stats.PaidSubmissions = paid.Count
	stats.Revenue = paid.Revenue
	stats.CreditsPurchased = paid.Credits
	stats.AverageCreditsUsed = paid.AverageUsed

	var byStatus []struct {
		Status models.SubmissionStatus
		Count  int64
	}
	if err := db.Model(&models.Submission{}).Select("status, COUNT(*) AS count").
		Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
	}

	var byPayment []struct {
		PaymentStatus models.PaymentStatus
		Count         int64
	}
	if err := db.Model(&models.Submission{}).Select("payment_status, COUNT(*) AS count").
		Group("payment_status").Scan(&byPayment).Error; err != nil {
		return nil, err
	}
	for _, row := range byPayment {
		stats.ByPaymentStatus[row.PaymentStatus] = row.Count
	}

	return stats, nil
}

// Ping runs a one-row probe for health checks.
func (r *SubmissionRepository) Ping(ctx context.Context) error {
	return database.Ping(ctx, r.db)
}
