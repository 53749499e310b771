package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID          uuid.UUID
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category struct {
	ID   uuid.UUID
	Name string
}

type Product struct {
	ID         uuid.UUID
	Name       string
	Brand      string
	Price      decimal.Decimal
	CategoryID *uuid.UUID
	Sizes      []ProductSize
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProductSize is the remaining stock for one size of a product.
type ProductSize struct {
	ProductID uuid.UUID
	Size      string
	Stock     int
}

type Order struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	OrderDate    time.Time
	PromisedDate time.Time
	Address      string
	TotalAmount  decimal.Decimal
	IsComplete   bool
	Details      []OrderDetail
	CreatedAt    time.Time
}

// OrderDetail is one product+size line of an order. Price is the product
// price captured when the line was created.
type OrderDetail struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Size      string
	Quantity  int
	Price     decimal.Decimal
}

// Subtotal returns quantity * price.
func (d OrderDetail) Subtotal() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

type Payment struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	Amount            decimal.Decimal
	Method            string
	Date              time.Time
	Status            PaymentStatus
	CheckoutSessionID string
}

// PaymentStatusMessage is a status change reported by an external payment
// processor, either through the webhook or the payments queue.
type PaymentStatusMessage struct {
	EventID   string        `json:"event_id"`
	PaymentID uuid.UUID     `json:"payment_id"`
	Status    PaymentStatus `json:"status"`
}

type EventType string

const (
	EventOrderCreated     EventType = "order.created"
	EventOrderDeleted     EventType = "order.deleted"
	EventPaymentCompleted EventType = "payment.completed"
)

// Event is published after a committed change to an order.
type Event struct {
	Type        EventType        `json:"type"`
	OrderID     uuid.UUID        `json:"order_id"`
	UserID      uuid.UUID        `json:"user_id,omitempty"`
	PaymentID   *uuid.UUID       `json:"payment_id,omitempty"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}
