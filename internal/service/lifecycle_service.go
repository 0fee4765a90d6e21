package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/internal/models"
	"github.com/thetankguide/featuretank/internal/repository"
	"github.com/thetankguide/featuretank/pkg/email"
	"github.com/thetankguide/featuretank/pkg/payment"
)

// WebhookVerifier authenticates a raw webhook body against its signature header.
type WebhookVerifier interface {
	Verify(payload []byte, header string) error
}

// LifecycleService advances submissions through payment and publication.
type LifecycleService struct {
	submissions   *repository.SubmissionRepository
	verifier      WebhookVerifier
	gateway       payment.MetadataFetcher
	notifications *Notifications
	log           *zap.Logger
	now           func() time.Time
}

func NewLifecycleService(
	submissions *repository.SubmissionRepository,
	verifier WebhookVerifier,
	gateway payment.MetadataFetcher,
	notifications *Notifications,
	log *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		submissions:   submissions,
		verifier:      verifier,
		gateway:       gateway,
		notifications: notifications,
		log:           log.Named("lifecycle"),
		now:           time.Now,
	}
}

// HandleWebhook verifies and applies one gateway event. Every transition is
// safe to replay.
func (s *LifecycleService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := s.verifier.Verify(payload, signature); err != nil {
		s.log.Warn("webhook rejected", zap.Error(err))
		return models.NewSignatureError(err)
	}

	evt, err := payment.ParseEvent(payload)
	if errors.Is(err, payment.ErrEventIgnored) {
		s.log.Debug("webhook ignored", zap.String("event_type", evt.Type), zap.String("event_id", evt.ID))
		return nil
	}
	if err != nil {
		return models.NewValidationError("Invalid webhook payload.")
	}

	log := s.log.With(
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type),
		zap.String("payment_intent", evt.PaymentIntentID))

	if err := evt.ResolveSubmission(ctx, s.gateway); err != nil {
		log.Error("fetch payment intent metadata", zap.Error(err))
		return models.NewPaymentGatewayError("could not resolve webhook submission", err)
	}
	if evt.SubmissionID == "" {
		log.Info("webhook without submission id")
		return models.NewNotFoundError("submission not found")
	}
	log = log.With(zap.String("submission_id", evt.SubmissionID))

	switch evt.Type {
	case payment.EventCheckoutCompleted:
		return s.checkoutCompleted(ctx, evt, log)
	case payment.EventCheckoutExpired:
		changed, err := s.submissions.MarkExpired(ctx, evt.SubmissionID, evt.SessionID)
		if err != nil {
			return s.storeError(err, log)
		}
		log.Info("checkout expired", zap.Bool("changed", changed))
	case payment.EventChargeRefunded:
		changed, err := s.submissions.MarkRefunded(ctx, evt.SubmissionID, evt.PaymentIntentID)
		if err != nil {
			return s.storeError(err, log)
		}
		log.Info("payment refunded", zap.Bool("changed", changed))
	}
	return nil
}

func (s *LifecycleService) checkoutCompleted(ctx context.Context, evt *payment.Event, log *zap.Logger) error {
	conf := repository.PaymentConfirmation{
		SessionID:       evt.SessionID,
		PaymentIntentID: evt.PaymentIntentID,
		CustomerEmail:   evt.CustomerEmail,
		ConfirmedAt:     s.now(),
	}
	if conf.CustomerEmail == "" {
		conf.CustomerEmail = evt.Metadata[payment.MetaUserEmail]
	}
	if evt.AmountTotal > 0 {
		amount := float64(evt.AmountTotal) / 100
		conf.Amount = &amount
	}

	sub, applied, err := s.submissions.MarkPaid(ctx, evt.SubmissionID, conf)
	if err != nil {
		return s.storeError(err, log)
	}
	if !applied {
		if sub.StripePaymentIntentID != nil && evt.PaymentIntentID != "" && *sub.StripePaymentIntentID != evt.PaymentIntentID {
			log.Warn("completion replayed with a different payment intent",
				zap.String("payment_intent_on_file", *sub.StripePaymentIntentID))
		} else {
			log.Info("completion already applied", zap.String("payment_status", string(sub.PaymentStatus)))
		}
		return nil
	}

	log.Info("payment confirmed", zap.Int("credits", sub.TotalCreditsPurchased))
	notice := noticeFor(sub)
	s.notifications.send("payment_confirmed", sub.ID, func(ctx context.Context, n email.Notifier) error {
		return n.PaymentConfirmed(ctx, notice)
	})
	return nil
}

// SetStatus is the operator's direct status overwrite. Entering published
// sends the published notification with the remaining credit balance.
func (s *LifecycleService) SetStatus(ctx context.Context, id string, req models.StatusUpdateRequest) (*models.Submission, error) {
	if !req.Status.Valid() {
		return nil, models.NewValidationError("Invalid status.")
	}

	change, err := s.submissions.UpdateStatus(ctx, id, req.Status, req.PublishedURL, s.now())
	if err != nil {
		return nil, err
	}
	sub := change.Submission
	s.log.Info("status updated",
		zap.String("submission_id", id),
		zap.String("from", string(change.Previous)),
		zap.String("to", string(sub.Status)))

	if change.EnteredPublished() {
		notice := email.PublishedNotice{
			Notice:           noticeFor(sub),
			PublishedURL:     *sub.PublishedURL,
			RemainingCredits: sub.RemainingCredits(),
		}
		s.notifications.send("published", sub.ID, func(ctx context.Context, n email.Notifier) error {
			return n.Published(ctx, notice)
		})
	}
	return sub, nil
}

// UseCredits draws down editing credits on a paid submission.
func (s *LifecycleService) UseCredits(ctx context.Context, id string, count int) (*models.Submission, error) {
	sub, err := s.submissions.ConsumeCredits(ctx, id, count)
	if err != nil {
		return nil, err
	}
	s.log.Info("credits used",
		zap.String("submission_id", id),
		zap.Int("count", count),
		zap.Int("remaining", sub.RemainingCredits()))
	return sub, nil
}

func (s *LifecycleService) storeError(err error, log *zap.Logger) error {
	if _, ok := models.AsAppError(err); ok {
		return err
	}
	log.Error("datastore failure", zap.Error(err))
	return models.NewInternalError("could not apply webhook", err)
}
