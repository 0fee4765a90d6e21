package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/thetankguide/featuretank/pkg/pricing"
)

// Metadata keys stamped on checkout sessions and their payment intents.
const (
	MetaSubmissionID     = "submission_id"
	MetaUserEmail        = "user_email"
	MetaTankName         = "tank_name"
	MetaCreditsPurchased = "credits_purchased"
)

// PriceCatalog holds the Stripe price IDs per product. A blank ID makes the
// line go out as inline price data instead.
type PriceCatalog struct {
	Editing     string
	Tank        string
	ExtraPhotos string
}

func (c PriceCatalog) lookup(p pricing.Product) string {
	switch p {
	case pricing.ProductEditing:
		return c.Editing
	case pricing.ProductTank:
		return c.Tank
	case pricing.ProductExtraPhoto:
		return c.ExtraPhotos
	}
	return ""
}

type StripeConfig struct {
	SecretKey  string
	Prices     PriceCatalog
	Currency   string
	SuccessURL string
	CancelURL  string

	// Backends overrides the API endpoints; nil uses Stripe's.
	Backends *stripe.Backends
}

type CheckoutRequest struct {
	SubmissionID string
	Email        string
	TankName     string
	Credits      int
	Lines        []pricing.Line

	// IdempotencyKey defaults to SubmissionID when empty.
	IdempotencyKey string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// GatewayError wraps a failed call to the payment gateway.
type GatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("stripe %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("stripe %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

type StripeService struct {
	api        *client.API
	prices     PriceCatalog
	currency   string
	successURL string
	cancelURL  string
}

func NewStripeService(cfg StripeConfig) *StripeService {
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeService{
		api:        client.New(cfg.SecretKey, cfg.Backends),
		prices:     cfg.Prices,
		currency:   currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

// CheckoutIdempotencyKey names the nth checkout opened for a submission.
// Attempt 0 is the intake call and uses the bare submission ID; each resumed
// checkout gets its own key so Stripe does not replay an earlier response.
func CheckoutIdempotencyKey(submissionID string, attempt int) string {
	if attempt <= 0 {
		return submissionID
	}
	return fmt.Sprintf("%s:resume-%d", submissionID, attempt)
}

// CreateCheckoutSession opens a hosted checkout for a priced submission. A
// network retry with the same idempotency key returns the original session
// instead of opening a second one.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.SubmissionID == "" {
		return nil, &GatewayError{Op: "checkout.create", Err: errors.New("submission id is required")}
	}
	if len(req.Lines) == 0 {
		return nil, &GatewayError{Op: "checkout.create", Err: errors.New("no line items")}
	}

	params := &stripe.CheckoutSessionParams{
		CustomerEmail: stripe.String(req.Email),
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:     s.lineItems(req.Lines),
		SuccessURL:    stripe.String(s.successURL),
		CancelURL:     stripe.String(s.cancelURL),
	}
	params.Context = ctx
	key := req.IdempotencyKey
	if key == "" {
		key = req.SubmissionID
	}
	params.SetIdempotencyKey(key)

	intentData := &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: map[string]string{}}
	for key, value := range sessionMetadata(req) {
		params.AddMetadata(key, value)
		intentData.Metadata[key] = value
	}
	params.PaymentIntentData = intentData

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapStripeError("checkout.create", err)
	}
	if sess.URL == "" {
		return nil, &GatewayError{Op: "checkout.create", Err: errors.New("session has no redirect url")}
	}

	return &CheckoutSession{
		ID:  sess.ID,
		URL: sess.URL,
	}, nil
}

// PaymentIntentMetadata fetches the metadata recorded on a payment intent.
func (s *StripeService) PaymentIntentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return nil, wrapStripeError("payment_intent.get", err)
	}
	if pi.Metadata == nil {
		return map[string]string{}, nil
	}
	return pi.Metadata, nil
}

func (s *StripeService) lineItems(lines []pricing.Line) []*stripe.CheckoutSessionLineItemParams {
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(lines))
	for _, l := range lines {
		item := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(l.Quantity)),
		}
		if priceID := s.prices.lookup(l.Product); priceID != "" {
			item.Price = stripe.String(priceID)
		} else {
			item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(int64(l.UnitPrice) * 100),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Description),
				},
			}
		}
		items = append(items, item)
	}
	return items
}

func sessionMetadata(req CheckoutRequest) map[string]string {
	return map[string]string{
		MetaSubmissionID:     req.SubmissionID,
		MetaUserEmail:        req.Email,
		MetaTankName:         req.TankName,
		MetaCreditsPurchased: strconv.Itoa(req.Credits),
	}
}

func wrapStripeError(op string, err error) error {
	gwErr := &GatewayError{Op: op, Err: err}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		gwErr.StatusCode = stripeErr.HTTPStatusCode
	}
	return gwErr
}
