// Package payment talks to Stripe: it opens hosted checkout sessions for
// pending payments and turns verified webhook events into payment status
// changes.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/service"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

const (
	metaOrderID   = "order_id"
	metaUserID    = "user_id"
	metaPaymentID = "payment_id"
)

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	FrontendURL   string
}

type Stripe struct {
	sessions      sessionCreator
	webhookSecret string
	currency      string
	frontendURL   string
}

func NewStripe(cfg Config) *Stripe {
	return &Stripe{
		sessions:      &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		currency:      strings.ToLower(cfg.Currency),
		frontendURL:   strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

// CreateSession opens a one line checkout session for the full payment
// amount.
func (s *Stripe) CreateSession(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(toMinorUnits(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Order " + req.OrderID.String()),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		ClientReferenceID: stripe.String(req.PaymentID.String()),
		SuccessURL:        stripe.String(s.frontendURL + "/orders/" + req.OrderID.String() + "?checkout=success"),
		CancelURL:         stripe.String(s.frontendURL + "/orders/" + req.OrderID.String() + "?checkout=cancelled"),
	}
	params.Context = ctx
	params.AddMetadata(metaOrderID, req.OrderID.String())
	params.AddMetadata(metaUserID, req.UserID.String())
	params.AddMetadata(metaPaymentID, req.PaymentID.String())

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &service.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies payload against the Stripe-Signature header and maps
// checkout events to a payment status change. It returns nil, nil for event
// types that do not change a payment.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*model.PaymentStatusMessage, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var status model.PaymentStatus
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		status = model.PaymentStatusCompleted
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		status = model.PaymentStatusFailed
	case stripe.EventTypeCheckoutSessionExpired:
		status = model.PaymentStatusCancelled
	default:
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	// A completed session with a delayed payment method is settled by the
	// later async_payment_* event.
	if event.Type == stripe.EventTypeCheckoutSessionCompleted &&
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return nil, nil
	}

	paymentID, err := uuid.Parse(sess.Metadata[metaPaymentID])
	if err != nil {
		return nil, fmt.Errorf("checkout session %s has no payment id: %w", sess.ID, err)
	}
	return &model.PaymentStatusMessage{EventID: event.ID, PaymentID: paymentID, Status: status}, nil
}

// toMinorUnits converts an amount to cents, rounding half away from zero.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
