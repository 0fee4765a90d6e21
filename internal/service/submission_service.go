package service

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/internal/repository"
	"github.com/thetankguide/featuretank/pkg/email"
	"github.com/thetankguide/featuretank/pkg/payment"
	"github.com/thetankguide/featuretank/pkg/pricing"
	"github.com/thetankguide/featuretank/pkg/similarity"
	"github.com/thetankguide/featuretank/pkg/utils"
)

// CheckoutCreator opens hosted checkout sessions.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
}

type SubmissionService struct {
	submissions   *repository.SubmissionRepository
	users         *repository.UserRepository
	checkout      CheckoutCreator
	notifications *Notifications
	validator     *utils.Validator
	log           *zap.Logger
}

func NewSubmissionService(
	submissions *repository.SubmissionRepository,
	users *repository.UserRepository,
	checkout CheckoutCreator,
	notifications *Notifications,
	validator *utils.Validator,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissions:   submissions,
		users:         users,
		checkout:      checkout,
		notifications: notifications,
		validator:     validator,
		log:           log.Named("submissions"),
	}
}

// Submit validates and prices an intake, stores it, and either completes it
// as free or opens a checkout session for it.
func (s *SubmissionService) Submit(ctx context.Context, form models.IntakeForm) (*models.SubmissionCreated, error) {
	req, err := ParseIntake(form)
	if err != nil {
		return nil, err
	}
	if msg := s.validator.Message(req); msg != "" {
		return nil, models.NewValidationError(msg)
	}

	quote, err := pricing.Calculate(pricing.Selection{
		FirstTank:             req.FirstTank,
		StaffEditing:          req.NarrativeSource == models.NarrativeStaff,
		AdditionalTanks:       req.AdditionalTanks,
		ExtraPhotos:           req.ExtraPhotos,
		ExtraPhotosAdditional: req.ExtraPhotosAdditional,
	})
	if err != nil {
		return nil, models.NewValidationError("Additional tanks must be between 0 and 4.")
	}
	if !quote.IsFree() && !req.PricingConfirm {
		return nil, models.NewValidationError("All consent checkboxes are required.")
	}

	previous, err := s.submissions.TankNamesByEmail(ctx, req.Email)
	if err != nil {
		return nil, models.NewInternalError("could not check previous submissions", err)
	}
	score := similarity.Max(req.TankName, previous)

	sub := newSubmissionRecord(req, quote, score)
	if err := s.submissions.Create(ctx, sub); err != nil {
		if _, ok := models.AsAppError(err); ok {
			return nil, err
		}
		return nil, models.NewInternalError("could not save submission", err)
	}
	log := s.log.With(zap.String("submission_id", sub.ID))
	log.Info("submission created",
		zap.Int("total_price", sub.TotalPrice),
		zap.Int("credits", sub.TotalCreditsPurchased),
		zap.Bool("flagged_as_duplicate", sub.FlaggedAsDuplicate))

	if _, err := s.users.Upsert(ctx, req.Email, models.UserSubmissionFacts{
		Name:            req.Name,
		UsedFirstTank:   req.FirstTank,
		NewsletterOptIn: req.NewsletterOptIn,
		SubmittedAt:     sub.CreatedAt,
	}); err != nil {
		log.Error("upsert user", zap.Error(err))
	}

	if quote.IsFree() {
		notice := noticeFor(sub)
		s.notifications.send("submission_received", sub.ID, func(ctx context.Context, n email.Notifier) error {
			return n.SubmissionReceived(ctx, notice)
		})
		return &models.SubmissionCreated{
			Success:       true,
			SubmissionID:  sub.ID,
			PaymentStatus: sub.PaymentStatus,
		}, nil
	}

	return s.openCheckout(ctx, sub, payment.CheckoutIdempotencyKey(sub.ID, 0))
}

// ResumeCheckout reopens checkout for a submission still awaiting payment.
// Every resume counts as a new attempt with its own idempotency key, so an
// expired session or a failed gateway call is never replayed.
func (s *SubmissionService) ResumeCheckout(ctx context.Context, id string) (*models.SubmissionCreated, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.PaymentStatus != models.PaymentPending || len(sub.PriceLines) == 0 {
		return nil, models.NewValidationError("This submission is not awaiting payment.")
	}
	attempt, err := s.submissions.NextCheckoutAttempt(ctx, sub.ID)
	if err != nil {
		if _, ok := models.AsAppError(err); ok {
			return nil, err
		}
		return nil, models.NewInternalError("could not resume checkout", err)
	}
	return s.openCheckout(ctx, sub, payment.CheckoutIdempotencyKey(sub.ID, attempt))
}

func (s *SubmissionService) openCheckout(ctx context.Context, sub *models.Submission, key string) (*models.SubmissionCreated, error) {
	log := s.log.With(zap.String("submission_id", sub.ID))

	session, err := s.checkout.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		SubmissionID:   sub.ID,
		IdempotencyKey: key,
		Email:          sub.UserEmail,
		TankName:       sub.TankName,
		Credits:        sub.TotalCreditsPurchased,
		Lines:          sub.PriceLines,
	})
	if err != nil {
		log.Error("create checkout session", zap.Error(err))
		return nil, models.NewPaymentGatewayError(
			"Payment could not be started. Your submission "+sub.ID+" was saved; please try again.", err)
	}

	if err := s.submissions.SetCheckoutSession(ctx, sub.ID, session.ID); err != nil {
		log.Error("store checkout session", zap.String("session_id", session.ID), zap.Error(err))
	}

	url := session.URL
	return &models.SubmissionCreated{
		Success:       true,
		SubmissionID:  sub.ID,
		CheckoutURL:   &url,
		PaymentStatus: models.PaymentPending,
	}, nil
}

func newSubmissionRecord(req models.IntakeRequest, quote pricing.Quote, score float64) *models.Submission {
	sub := &models.Submission{
		UserName:                req.Name,
		UserEmail:               req.Email,
		YouTube:                 utils.OptionalString(req.YouTube),
		Instagram:               utils.OptionalString(req.Instagram),
		TikTok:                  utils.OptionalString(req.TikTok),
		TankName:                req.TankName,
		TankSize:                req.TankSize,
		Environment:             req.Environment,
		Photos:                  req.Photos,
		NarrativeSource:         req.NarrativeSource,
		IsFirstTank:             req.FirstTank,
		AdditionalTanks:         req.AdditionalTanks,
		EditingPackagePurchased: quote.TotalCredits > 0,
		ExtraPhotosPurchased:    req.ExtraPhotos || (req.ExtraPhotosAdditional && req.AdditionalTanks > 0),
		PriceLines:              quote.Lines,
		TotalPrice:              quote.TotalPrice,
		TotalCreditsPurchased:   quote.TotalCredits,
		DuplicateCheckScore:     score,
		FlaggedAsDuplicate:      similarity.IsDuplicate(score),
		PaymentStatus:           models.PaymentFree,
		Status:                  models.StatusSubmitted,
	}
	if sub.Photos == nil {
		sub.Photos = []string{}
	}
	if !quote.IsFree() {
		sub.PaymentStatus = models.PaymentPending
		sub.Status = models.StatusPaymentPending
	}
	return sub
}

// narrativeAliases maps the legacy form values onto narrative sources.
var narrativeAliases = map[string]models.NarrativeSource{
	"self":  models.NarrativeSelf,
	"user":  models.NarrativeSelf,
	"staff": models.NarrativeStaff,
	"fklc":  models.NarrativeStaff,
}

// ParseIntake turns the raw form into a typed request. Structural problems
// that validation tags cannot see are reported here.
func ParseIntake(form models.IntakeForm) (models.IntakeRequest, error) {
	req := models.IntakeRequest{
		Name:                  strings.TrimSpace(form.Name),
		Email:                 strings.ToLower(strings.TrimSpace(form.Email)),
		TankName:              strings.TrimSpace(form.TankName),
		Environment:           models.Environment(strings.ToLower(strings.TrimSpace(form.Environment))),
		ExtraPhotos:           utils.ParseBool(form.ExtraPhotos),
		ExtraPhotosAdditional: utils.ParseBool(form.ExtraPhotosAdditional),
		NewsletterOptIn:       utils.ParseBool(form.NewsletterOptIn),
		YouTube:               strings.TrimSpace(form.YouTube),
		Instagram:             strings.TrimSpace(form.Instagram),
		TikTok:                strings.TrimSpace(form.TikTok),
		NewTankConfirm:        utils.ParseBool(form.NewTankConfirm),
		LicenseConfirm:        utils.ParseBool(form.LicenseConfirm),
		GuidelinesConfirm:     utils.ParseBool(form.GuidelinesConfirm),
		PermissionContact:     utils.ParseBool(form.PermissionContact),
		PricingConfirm:        utils.ParseBool(form.PricingConfirm),
	}

	for _, p := range form.Photos {
		if p = strings.TrimSpace(p); p != "" {
			req.Photos = append(req.Photos, p)
		}
	}

	for _, field := range []string{form.Name, form.Email, form.TankName, form.TankSize, form.Environment, form.IsFirstTank} {
		if strings.TrimSpace(field) == "" {
			return req, models.NewValidationError("Missing required fields.")
		}
	}

	size, err := strconv.ParseFloat(strings.TrimSpace(form.TankSize), 64)
	if err != nil || math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return req, models.NewValidationError("Tank size must be a positive number.")
	}
	req.TankSize = size

	source := strings.ToLower(strings.TrimSpace(form.TextSource))
	if source == "" {
		source = "self"
	}
	narrative, ok := narrativeAliases[source]
	if !ok {
		return req, models.NewValidationError("Invalid text source.")
	}
	req.NarrativeSource = narrative

	switch strings.ToLower(strings.TrimSpace(form.IsFirstTank)) {
	case "yes":
		req.FirstTank = true
	case "no":
		req.FirstTank = false
	default:
		return req, models.NewValidationError("Invalid tank submission type.")
	}

	if raw := strings.TrimSpace(form.AdditionalTanks); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, models.NewValidationError("Additional tanks must be between 0 and 4.")
		}
		req.AdditionalTanks = n
	}

	return req, nil
}

func noticeFor(sub *models.Submission) email.Notice {
	return email.Notice{
		SubmissionID: sub.ID,
		Name:         sub.UserName,
		Email:        sub.UserEmail,
		TankName:     sub.TankName,
		TotalPrice:   sub.TotalPrice,
		Credits:      sub.TotalCreditsPurchased,
	}
}
