package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v74"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventChargeRefunded    = "charge.refunded"
)

var (
	ErrInvalidPayload = errors.New("invalid webhook payload")
	ErrEventIgnored   = errors.New("webhook event ignored")
)

// Event is a gateway callback reduced to the facts the submission lifecycle
// needs, whichever event shape it arrived in.
type Event struct {
	ID              string
	Type            string
	SubmissionID    string
	Metadata        map[string]string
	SessionID       string
	PaymentIntentID string
	CustomerEmail   string
	// AmountTotal is in minor currency units.
	AmountTotal int64
}

// MetadataFetcher resolves metadata recorded on a payment intent.
type MetadataFetcher interface {
	PaymentIntentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error)
}

// ParseEvent decodes a verified webhook body. Event types the lifecycle does
// not act on return ErrEventIgnored.
func ParseEvent(payload []byte) (*Event, error) {
	var raw stripe.Event
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, ErrInvalidPayload
	}
	if raw.Data == nil || len(raw.Data.Raw) == 0 {
		return nil, ErrInvalidPayload
	}

	evt := &Event{
		ID:   raw.ID,
		Type: string(raw.Type),
	}

	switch evt.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &sess); err != nil {
			return nil, ErrInvalidPayload
		}
		evt.SessionID = sess.ID
		evt.Metadata = copyMetadata(sess.Metadata)
		evt.AmountTotal = sess.AmountTotal
		evt.CustomerEmail = sess.CustomerEmail
		if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
			evt.CustomerEmail = sess.CustomerDetails.Email
		}
		if sess.PaymentIntent != nil {
			evt.PaymentIntentID = sess.PaymentIntent.ID
		}
	case EventChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(raw.Data.Raw, &charge); err != nil {
			return nil, ErrInvalidPayload
		}
		evt.Metadata = copyMetadata(charge.Metadata)
		evt.AmountTotal = charge.AmountRefunded
		if charge.PaymentIntent != nil {
			evt.PaymentIntentID = charge.PaymentIntent.ID
		}
	default:
		return evt, ErrEventIgnored
	}

	evt.SubmissionID = strings.TrimSpace(evt.Metadata[MetaSubmissionID])
	return evt, nil
}

// ResolveSubmission fills in SubmissionID from the payment intent's metadata
// when the event object itself did not carry it. Keys already on the event
// win over fetched ones.
func (e *Event) ResolveSubmission(ctx context.Context, fetcher MetadataFetcher) error {
	if e.SubmissionID != "" || e.PaymentIntentID == "" || fetcher == nil {
		return nil
	}

	fetched, err := fetcher.PaymentIntentMetadata(ctx, e.PaymentIntentID)
	if err != nil {
		return err
	}
	for key, value := range fetched {
		if _, ok := e.Metadata[key]; !ok {
			e.Metadata[key] = value
		}
	}
	e.SubmissionID = strings.TrimSpace(fetched[MetaSubmissionID])
	return nil
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
