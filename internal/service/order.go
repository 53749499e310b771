package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/events"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

type OrderLine struct {
	ProductID uuid.UUID
	Size      string
	Quantity  int
}

func (l OrderLine) valid() bool {
	return l.ProductID != uuid.Nil && strings.TrimSpace(l.Size) != "" && l.Quantity > 0
}

type CreateOrderInput struct {
	OrderDate    time.Time
	PromisedDate time.Time
	Address      string
	OrderLine
}

type OrderService struct {
	store     repository.Store
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewOrderService(store repository.Store, publisher events.Publisher, log *zap.Logger) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{store: store, publisher: publisher, log: log, now: time.Now}
}

// CreateOrder opens an order with its first line in one transaction. Either
// the order, its line, the new total and the stock decrement all persist, or
// none of them do.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*model.Order, error) {
	if userID == uuid.Nil || in.OrderDate.IsZero() || in.PromisedDate.IsZero() ||
		strings.TrimSpace(in.Address) == "" || !in.OrderLine.valid() {
		return nil, ErrMissingOrderFields
	}

	var order *model.Order
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		o := &model.Order{
			UserID:       userID,
			OrderDate:    in.OrderDate,
			PromisedDate: in.PromisedDate,
			Address:      strings.TrimSpace(in.Address),
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}

		detail, total, err := addLine(ctx, tx, o.ID, in.OrderLine)
		if err != nil {
			return err
		}
		o.TotalAmount = total
		o.Details = []model.OrderDetail{*detail}
		order = o
		return nil
	})
	if err != nil {
		s.log.Warn("create order failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, internal(err, "Error creating order")
	}

	publishEvent(ctx, s.publisher, s.log, s.now, model.Event{
		Type: model.EventOrderCreated, OrderID: order.ID, UserID: userID, TotalAmount: &order.TotalAmount,
	})
	return order, nil
}

// AddOrderDetail appends a line to an open order of userID and returns the
// new line together with the order carrying its recomputed total.
func (s *OrderService) AddOrderDetail(ctx context.Context, userID, orderID uuid.UUID, line OrderLine) (*model.OrderDetail, *model.Order, error) {
	if !line.valid() {
		return nil, nil, ErrMissingOrderFields
	}

	var (
		detail *model.OrderDetail
		order  *model.Order
	)
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		o, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil || o.UserID != userID {
			return ErrOrderNotFound
		}
		if o.IsComplete {
			return ErrOrderComplete
		}

		d, total, err := addLine(ctx, tx, o.ID, line)
		if err != nil {
			return err
		}
		o.TotalAmount = total
		o.Details = append(o.Details, *d)
		detail, order = d, o
		return nil
	})
	if err != nil {
		s.log.Warn("add order detail failed", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, nil, internal(err, "Error creating order detail")
	}
	return detail, order, nil
}

// addLine validates product, size and stock, inserts the line at the
// product's current price, recomputes the order total and takes the stock.
// The stock row stays locked until tx ends, so concurrent orders for the same
// size serialise on it.
func addLine(ctx context.Context, tx repository.Repos, orderID uuid.UUID, line OrderLine) (*model.OrderDetail, decimal.Decimal, error) {
	product, err := tx.Products().GetByID(ctx, line.ProductID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if product == nil {
		return nil, decimal.Zero, ErrProductNotFound
	}

	size := strings.TrimSpace(line.Size)
	stock, err := tx.Products().LockSize(ctx, product.ID, size)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if stock == nil {
		return nil, decimal.Zero, ErrSizeNotFound
	}
	if line.Quantity > stock.Stock {
		return nil, decimal.Zero, ErrInsufficientStock
	}

	detail := &model.OrderDetail{
		OrderID:   orderID,
		ProductID: product.ID,
		Size:      size,
		Quantity:  line.Quantity,
		Price:     product.Price,
	}
	if err := tx.Orders().CreateDetail(ctx, detail); err != nil {
		return nil, decimal.Zero, err
	}

	total, err := tx.Orders().RecomputeTotal(ctx, orderID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := tx.Products().DecrementStock(ctx, product.ID, size, line.Quantity); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, decimal.Zero, ErrInsufficientStock.Wrap(err)
		}
		return nil, decimal.Zero, err
	}
	return detail, total, nil
}

func (s *OrderService) PatchOrder(ctx context.Context, userID, orderID uuid.UUID, patch repository.OrderPatch) (*model.Order, error) {
	if patch.Address != nil {
		address := strings.TrimSpace(*patch.Address)
		patch.Address = &address
		if address == "" {
			patch.Address = nil
		}
	}
	if patch.PromisedDate != nil && patch.PromisedDate.IsZero() {
		patch.PromisedDate = nil
	}
	if patch.Empty() {
		return nil, ErrNoFieldsToUpdate
	}

	if _, err := s.ownedOrder(ctx, userID, orderID); err != nil {
		return nil, internal(err, "Error updating order")
	}

	order, err := s.store.Orders().Update(ctx, orderID, patch)
	if err != nil {
		return nil, internal(err, "Error updating order")
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// DeleteOrder removes the order with its lines and payments. Stock taken by
// the lines is not returned.
func (s *OrderService) DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		o, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil || o.UserID != userID {
			return ErrOrderNotFound
		}
		if err := tx.Payments().DeleteByOrderID(ctx, orderID); err != nil {
			return err
		}
		if err := tx.Orders().DeleteDetails(ctx, orderID); err != nil {
			return err
		}
		if err := tx.Orders().Delete(ctx, orderID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return internal(err, "Error deleting order")
	}

	publishEvent(ctx, s.publisher, s.log, s.now, model.Event{Type: model.EventOrderDeleted, OrderID: orderID, UserID: userID})
	return nil
}

// ListOrders returns the orders of userID, or every order when userID is nil.
func (s *OrderService) ListOrders(ctx context.Context, userID *uuid.UUID) ([]model.Order, error) {
	orders, err := s.store.Orders().List(ctx, userID)
	if err != nil {
		return nil, internal(err, "Error fetching orders")
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, internal(err, "Error fetching order")
	}
	return order, nil
}

func (s *OrderService) ListOrderDetails(ctx context.Context, userID, orderID uuid.UUID) ([]model.OrderDetail, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, internal(err, "Internal server error")
	}
	return order.Details, nil
}

func (s *OrderService) GetOrderDetail(ctx context.Context, userID, orderID, detailID uuid.UUID) (*model.OrderDetail, error) {
	if _, err := s.ownedOrder(ctx, userID, orderID); err != nil {
		return nil, internal(err, "Internal server error")
	}
	detail, err := s.store.Orders().GetDetail(ctx, orderID, detailID)
	if err != nil {
		return nil, internal(err, "Internal server error")
	}
	if detail == nil {
		return nil, ErrOrderDetailNotFound
	}
	return detail, nil
}

// ownedOrder loads an order and hides orders of other users behind
// ErrOrderNotFound.
func (s *OrderService) ownedOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// publishEvent emits a lifecycle event after commit. Failures are logged and
// never undo the committed change.
func publishEvent(ctx context.Context, p events.Publisher, log *zap.Logger, now func() time.Time, event model.Event) {
	event.OccurredAt = now().UTC()
	if err := p.Publish(ctx, event); err != nil {
		log.Error("publish event",
			zap.String("type", string(event.Type)),
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err),
		)
	}
}
