package models

import "time"

const (
	PurchaseStatusActive   = "active"
	PurchaseStatusRefunded = "refunded"

	PurchaseReasonInitial = "initial"
)

// CreditPurchase records the editing credits granted by one successful payment.
type CreditPurchase struct {
	ID                    string    `json:"id" gorm:"primaryKey;size:36"`
	SubmissionID          string    `json:"submission_id" gorm:"not null;index"`
	UserEmail             string    `json:"user_email" gorm:"not null;index"`
	PurchaseDate          time.Time `json:"purchase_date" gorm:"not null"`
	CreditsAdded          int       `json:"credits_added" gorm:"not null"`
	Amount                *float64  `json:"amount"`
	StripePaymentIntentID *string   `json:"stripe_payment_intent_id" gorm:"index"`
	Reason                string    `json:"reason" gorm:"not null;size:32"`
	Status                string    `json:"status" gorm:"not null;size:16;default:'active'"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
