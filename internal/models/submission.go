package models

import (
	"time"

	"github.com/thetankguide/featuretank/pkg/pricing"
)

type SubmissionStatus string

const (
	StatusPaymentPending       SubmissionStatus = "payment_pending"
	StatusSubmitted            SubmissionStatus = "submitted"
	StatusInReview             SubmissionStatus = "in_review"
	StatusAwaitingFirstDraft   SubmissionStatus = "awaiting_first_draft"
	StatusDraftReady           SubmissionStatus = "draft_ready"
	StatusAwaitingUserApproval SubmissionStatus = "awaiting_user_approval"
	StatusPublished            SubmissionStatus = "published"
	StatusRejected             SubmissionStatus = "rejected"
)

// WorkflowStatuses lists every status an operator may set.
var WorkflowStatuses = []SubmissionStatus{
	StatusPaymentPending,
	StatusSubmitted,
	StatusInReview,
	StatusAwaitingFirstDraft,
	StatusDraftReady,
	StatusAwaitingUserApproval,
	StatusPublished,
	StatusRejected,
}

func (s SubmissionStatus) Valid() bool {
	for _, known := range WorkflowStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentFree     PaymentStatus = "free"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Environment string

const (
	EnvironmentPlanted   Environment = "planted"
	EnvironmentUnplanted Environment = "unplanted"
)

type NarrativeSource string

const (
	NarrativeSelf  NarrativeSource = "self"
	NarrativeStaff NarrativeSource = "staff"
)

// SubmissionIDPrefix starts every human-readable submission ID, e.g. FT-0042.
const SubmissionIDPrefix = "FT-"

type Submission struct {
	ID string `json:"id" gorm:"primaryKey;size:32"`

	UserName  string  `json:"user_name" gorm:"not null"`
	UserEmail string  `json:"user_email" gorm:"not null;index"`
	YouTube   *string `json:"youtube"`
	Instagram *string `json:"instagram"`
	TikTok    *string `json:"tiktok"`

	TankName        string          `json:"tank_name" gorm:"not null"`
	TankSize        float64         `json:"tank_size" gorm:"not null"`
	Environment     Environment     `json:"environment" gorm:"not null;size:16"`
	Photos          []string        `json:"photos" gorm:"type:json;serializer:json"`
	NarrativeSource NarrativeSource `json:"narrative_source" gorm:"not null;size:16"`
	TextContent     *string         `json:"text_content"`
	IsFirstTank     bool            `json:"is_first_tank" gorm:"not null"`
	AdditionalTanks int             `json:"additional_tanks" gorm:"not null;default:0"`

	EditingPackagePurchased bool           `json:"editing_package_purchased" gorm:"not null;default:false"`
	ExtraPhotosPurchased    bool           `json:"extra_photos_purchased" gorm:"not null;default:false"`
	PriceLines              []pricing.Line `json:"price_lines" gorm:"type:json;serializer:json"`
	TotalPrice              int            `json:"total_price" gorm:"not null;default:0"`
	TotalCreditsPurchased   int            `json:"total_credits_purchased" gorm:"not null;default:0"`
	CreditsUsed             int            `json:"credits_used" gorm:"not null;default:0"`

	PaymentStatus           PaymentStatus `json:"payment_status" gorm:"not null;size:16;index"`
	StripeCheckoutSessionID *string       `json:"stripe_checkout_session_id" gorm:"index"`
	CheckoutAttempts        int           `json:"checkout_attempts" gorm:"not null;default:0"`
	StripePaymentIntentID   *string       `json:"stripe_payment_intent_id" gorm:"index"`

	Status       SubmissionStatus `json:"status" gorm:"not null;size:32;index"`
	PublishedURL *string          `json:"published_url"`
	PublishedAt  *time.Time       `json:"published_at"`

	DuplicateCheckScore float64 `json:"duplicate_check_score" gorm:"not null;default:0"`
	FlaggedAsDuplicate  bool    `json:"flagged_as_duplicate" gorm:"not null;default:false"`
	AdminNotes          *string `json:"admin_notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemainingCredits is how many editing revisions are still available.
func (s *Submission) RemainingCredits() int {
	if s.PaymentStatus != PaymentPaid {
		return 0
	}
	return s.TotalCreditsPurchased - s.CreditsUsed
}

// SubmissionFilter narrows admin listings.
type SubmissionFilter struct {
	Status SubmissionStatus
	Limit  int
	Offset int
}

type SubmissionPage struct {
	Submissions []Submission `json:"submissions"`
	Total       int64        `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}

type SubmissionStats struct {
	TotalSubmissions   int64                      `json:"total_submissions"`
	PaidSubmissions    int64                      `json:"paid_submissions"`
	FlaggedDuplicates  int64                      `json:"flagged_duplicates"`
	Revenue            float64                    `json:"revenue"`
	CreditsPurchased   int64                      `json:"credits_purchased"`
	AverageCreditsUsed float64                    `json:"average_credits_used"`
	ByStatus           map[SubmissionStatus]int64 `json:"by_status"`
	ByPaymentStatus    map[PaymentStatus]int64    `json:"by_payment_status"`
}
