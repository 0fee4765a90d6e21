package models

import (
	"time"
)

// User is one row per distinct submitter email. Rows are upserted on every
// intake and never deleted.
type User struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	Email                 string    `json:"email" gorm:"uniqueIndex;not null"`
	Name                  string    `json:"name" gorm:"not null"`
	TotalSubmissions      int       `json:"total_submissions" gorm:"not null;default:0"`
	FirstTankDiscountUsed bool      `json:"first_tank_discount_used" gorm:"not null;default:false"`
	NewsletterSubscribed  bool      `json:"newsletter_subscribed" gorm:"not null;default:false"`
	LastSubmission        time.Time `json:"last_submission"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// UserSubmissionFacts are the intake facts merged into a User row.
type UserSubmissionFacts struct {
	Name            string
	UsedFirstTank   bool
	NewsletterOptIn bool
	SubmittedAt     time.Time
}
