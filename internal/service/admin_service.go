package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/internal/repository"
	"github.com/thetankguide/featuretank/pkg/bcrypt"
)

// SubmissionDetail is the full admin view of one submission.
type SubmissionDetail struct {
	Submission      *models.Submission      `json:"submission"`
	RemainingCredit int                     `json:"remaining_credits"`
	CreditPurchases []models.CreditPurchase `json:"credit_purchases"`
	User            *models.User            `json:"user,omitempty"`
}

type AdminService struct {
	passwordHash string
	sessionValue string
	submissions  *repository.SubmissionRepository
	purchases    *repository.CreditPurchaseRepository
	users        *repository.UserRepository
	log          *zap.Logger
}

func NewAdminService(
	passwordHash string,
	submissions *repository.SubmissionRepository,
	purchases *repository.CreditPurchaseRepository,
	users *repository.UserRepository,
	log *zap.Logger,
) *AdminService {
	s := &AdminService{
		passwordHash: passwordHash,
		submissions:  submissions,
		purchases:    purchases,
		users:        users,
		log:          log.Named("admin"),
	}
	if passwordHash != "" {
		sum := sha256.Sum256([]byte("admin-session:" + passwordHash))
		s.sessionValue = hex.EncodeToString(sum[:])
	}
	return s
}

// Login checks password against the stored hash and returns the session
// cookie value.
func (s *AdminService) Login(password string) (string, error) {
	if s.passwordHash == "" || password == "" {
		return "", models.ErrUnauthorized
	}
	if err := bcrypt.ComparePassword(s.passwordHash, password); err != nil {
		s.log.Warn("admin login failed")
		return "", models.ErrUnauthorized
	}
	s.log.Info("admin login")
	return s.sessionValue, nil
}

// ValidSession reports whether cookie is the current session value.
func (s *AdminService) ValidSession(cookie string) bool {
	if s.sessionValue == "" || cookie == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(s.sessionValue)) == 1
}

func (s *AdminService) List(ctx context.Context, filter models.SubmissionFilter) (*models.SubmissionPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.NewValidationError("Invalid status.")
	}
	return s.submissions.List(ctx, filter)
}

func (s *AdminService) Get(ctx context.Context, id string) (*SubmissionDetail, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	purchases, err := s.purchases.GetBySubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &SubmissionDetail{
		Submission:      sub,
		RemainingCredit: sub.RemainingCredits(),
		CreditPurchases: purchases,
	}
	if user, err := s.users.GetByEmail(ctx, sub.UserEmail); err == nil {
		detail.User = user
	}
	return detail, nil
}

func (s *AdminService) Stats(ctx context.Context) (*models.SubmissionStats, error) {
	return s.submissions.Stats(ctx)
}
