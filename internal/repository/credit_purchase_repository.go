package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/thetankguide/featuretank/internal/models"
)

// CreditPurchaseRepository reads credit grants. They are written only by
// SubmissionRepository.MarkPaid and MarkRefunded.
type CreditPurchaseRepository struct {
	db *gorm.DB
}

func NewCreditPurchaseRepository(db *gorm.DB) *CreditPurchaseRepository {
	return &CreditPurchaseRepository{
		db: db,
	}
}

func (r *CreditPurchaseRepository) GetBySubmission(ctx context.Context, submissionID string) ([]models.CreditPurchase, error) {
	purchases := []models.CreditPurchase{}
	err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).
		Order("purchase_date DESC").
		Find(&purchases).Error
	return purchases, err
}

func (r *CreditPurchaseRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) ([]models.CreditPurchase, error) {
	purchases := []models.CreditPurchase{}
	err := r.db.WithContext(ctx).Where("stripe_payment_intent_id = ?", paymentIntentID).
		Find(&purchases).Error
	return purchases, err
}
