package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thetankguide/featuretank/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert records one more submission from email. The first-tank discount and
// newsletter flags only ever move from false to true.
func (r *UserRepository) Upsert(ctx context.Context, email string, facts models.UserSubmissionFacts) (*models.User, error) {
	user := models.User{
		Email:                 email,
		Name:                  facts.Name,
		TotalSubmissions:      1,
		FirstTankDiscountUsed: facts.UsedFirstTank,
		NewsletterSubscribed:  facts.NewsletterOptIn,
		LastSubmission:        facts.SubmittedAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "name"}, Value: gorm.Expr("excluded.name")},
			{Column: clause.Column{Name: "total_submissions"}, Value: gorm.Expr("users.total_submissions + 1")},
			{Column: clause.Column{Name: "first_tank_discount_used"}, Value: gorm.Expr("users.first_tank_discount_used OR excluded.first_tank_discount_used")},
			{Column: clause.Column{Name: "newsletter_subscribed"}, Value: gorm.Expr("users.newsletter_subscribed OR excluded.newsletter_subscribed")},
			{Column: clause.Column{Name: "last_submission"}, Value: gorm.Expr("excluded.last_submission")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(&user).Error
	if err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, email)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return &user, nil
}
