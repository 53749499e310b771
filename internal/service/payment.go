package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/events"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

type CreatePaymentInput struct {
	Amount decimal.Decimal
	Method string
}

type CheckoutRequest struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	PaymentID uuid.UUID
	Amount    decimal.Decimal
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutProvider opens a hosted checkout page at an external payment
// processor.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// EventDeduplicator remembers processor events that were already applied.
// Claim reports false when eventID was claimed before; Release forgets it so
// a redelivery can retry.
type EventDeduplicator interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type PaymentService struct {
	store     repository.Store
	checkout  CheckoutProvider
	dedupe    EventDeduplicator
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewPaymentService builds the service. checkout and dedupe may be nil: the
// checkout route then answers unavailable and processor events are applied
// without de-duplication.
func NewPaymentService(store repository.Store, checkout CheckoutProvider, dedupe EventDeduplicator, publisher events.Publisher, log *zap.Logger) *PaymentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PaymentService{
		store:     store,
		checkout:  checkout,
		dedupe:    dedupe,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func (s *PaymentService) CreatePayment(ctx context.Context, userID, orderID uuid.UUID, in CreatePaymentInput) (*model.Payment, error) {
	// Amounts are stored with two decimals.
	amount := in.Amount.Round(2)
	method := strings.TrimSpace(in.Method)
	if method == "" || !amount.IsPositive() {
		return nil, ErrPaymentFieldsMissing
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, internal(err, "Error creating payment.")
	}
	if order == nil || order.UserID != userID {
		return nil, ErrPaymentOrderMissing
	}
	if order.IsComplete {
		return nil, ErrPaymentOrderClosed
	}

	payment := &model.Payment{
		ID:      uuid.New(),
		OrderID: orderID,
		Amount:  amount,
		Method:  method,
		Date:    s.now().UTC(),
		Status:  model.PaymentStatusPending,
	}
	if err := s.store.Payments().Create(ctx, payment); err != nil {
		return nil, internal(err, "Error creating payment.")
	}
	return payment, nil
}

// UpdatePaymentStatus sets the status of a payment. Moving to COMPLETED
// closes the payment's order in the same transaction; if the order cannot be
// closed the payment keeps its previous status.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, status string) (*model.Payment, error) {
	st := model.PaymentStatus(strings.ToUpper(strings.TrimSpace(status)))
	if st == "" {
		return nil, ErrPaymentStatusMissing
	}

	var (
		payment *model.Payment
		ownerID uuid.UUID
	)
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		p, err := tx.Payments().UpdateStatus(ctx, paymentID, st)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPaymentNotFound
		}
		if st == model.PaymentStatusCompleted {
			order, err := tx.Orders().GetByID(ctx, p.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return ErrOrderNotFound
			}
			if err := tx.Orders().MarkComplete(ctx, p.OrderID); err != nil {
				return err
			}
			ownerID = order.UserID
		}
		payment = p
		return nil
	})
	if err != nil {
		s.log.Warn("update payment status failed",
			zap.String("payment_id", paymentID.String()),
			zap.String("status", string(st)),
			zap.Error(err),
		)
		return nil, internal(err, "Error updating payment status.")
	}

	if st == model.PaymentStatusCompleted {
		publishEvent(ctx, s.publisher, s.log, s.now, model.Event{
			Type: model.EventPaymentCompleted, OrderID: payment.OrderID, UserID: ownerID, PaymentID: &payment.ID,
		})
	}
	return payment, nil
}

// UpdatePaymentStatusForOrder is UpdatePaymentStatus for a payment reached
// through the order routes of userID.
func (s *PaymentService) UpdatePaymentStatusForOrder(ctx context.Context, userID, orderID, paymentID uuid.UUID, status string) (*model.Payment, error) {
	if strings.TrimSpace(status) == "" {
		return nil, ErrPaymentStatusMissing
	}
	if _, err := s.orderPayment(ctx, userID, orderID, paymentID); err != nil {
		return nil, internal(err, "Error updating payment status.")
	}
	return s.UpdatePaymentStatus(ctx, paymentID, status)
}

func (s *PaymentService) CreateCheckoutSession(ctx context.Context, userID, orderID, paymentID uuid.UUID) (*CheckoutSession, error) {
	if s.checkout == nil {
		return nil, ErrCheckoutUnavailable
	}

	payment, err := s.orderPayment(ctx, userID, orderID, paymentID)
	if err != nil {
		return nil, internal(err, "Error creating checkout session.")
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, ErrPaymentNotPending
	}

	session, err := s.checkout.CreateSession(ctx, CheckoutRequest{
		OrderID:   orderID,
		UserID:    userID,
		PaymentID: paymentID,
		Amount:    payment.Amount,
	})
	if err != nil {
		s.log.Error("create checkout session", zap.String("payment_id", paymentID.String()), zap.Error(err))
		return nil, ErrCheckoutFailed.Wrap(err)
	}

	if err := s.store.Payments().SetCheckoutSession(ctx, paymentID, session.ID); err != nil {
		return nil, internal(err, "Error creating checkout session.")
	}
	return session, nil
}

// HandleProcessorEvent applies a status change reported by the payment
// processor. Events are applied at most once per EventID; a failed event is
// released so a redelivery can try again.
func (s *PaymentService) HandleProcessorEvent(ctx context.Context, msg model.PaymentStatusMessage) error {
	if msg.EventID == "" || msg.PaymentID == uuid.Nil {
		return ErrInvalidProcessorEvent
	}

	if s.dedupe != nil {
		claimed, err := s.dedupe.Claim(ctx, msg.EventID)
		if err != nil {
			return internal(err, "Error updating payment status.")
		}
		if !claimed {
			s.log.Info("processor event already applied", zap.String("event_id", msg.EventID))
			return nil
		}
	}

	if _, err := s.UpdatePaymentStatus(ctx, msg.PaymentID, string(msg.Status)); err != nil {
		if s.dedupe != nil {
			if rerr := s.dedupe.Release(context.WithoutCancel(ctx), msg.EventID); rerr != nil {
				s.log.Warn("release processor event", zap.String("event_id", msg.EventID), zap.Error(rerr))
			}
		}
		return err
	}
	return nil
}

func (s *PaymentService) ListPayments(ctx context.Context, userID, orderID uuid.UUID) ([]model.Payment, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, internal(err, "Error fetching payments.")
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	payments, err := s.store.Payments().ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, internal(err, "Error fetching payments.")
	}
	return payments, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, userID, orderID, paymentID uuid.UUID) (*model.Payment, error) {
	payment, err := s.orderPayment(ctx, userID, orderID, paymentID)
	if err != nil {
		return nil, internal(err, "Error fetching payment.")
	}
	return payment, nil
}

// orderPayment loads a payment and checks that it belongs to orderID and that
// the order belongs to userID.
func (s *PaymentService) orderPayment(ctx context.Context, userID, orderID, paymentID uuid.UUID) (*model.Payment, error) {
	payment, err := s.store.Payments().GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.OrderID != orderID {
		return nil, ErrPaymentNotFound
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}
