package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
	"github.com/flicky/go-storefront-api/internal/service"
)

// The handlers depend on these views of the services in internal/service.

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, in service.CreateOrderInput) (*model.Order, error)
	AddOrderDetail(ctx context.Context, userID, orderID uuid.UUID, line service.OrderLine) (*model.OrderDetail, *model.Order, error)
	PatchOrder(ctx context.Context, userID, orderID uuid.UUID, patch repository.OrderPatch) (*model.Order, error)
	DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error
	ListOrders(ctx context.Context, userID *uuid.UUID) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error)
	ListOrderDetails(ctx context.Context, userID, orderID uuid.UUID) ([]model.OrderDetail, error)
	GetOrderDetail(ctx context.Context, userID, orderID, detailID uuid.UUID) (*model.OrderDetail, error)
}

type PaymentService interface {
	CreatePayment(ctx context.Context, userID, orderID uuid.UUID, in service.CreatePaymentInput) (*model.Payment, error)
	UpdatePaymentStatusForOrder(ctx context.Context, userID, orderID, paymentID uuid.UUID, status string) (*model.Payment, error)
	CreateCheckoutSession(ctx context.Context, userID, orderID, paymentID uuid.UUID) (*service.CheckoutSession, error)
	HandleProcessorEvent(ctx context.Context, msg model.PaymentStatusMessage) error
	ListPayments(ctx context.Context, userID, orderID uuid.UUID) ([]model.Payment, error)
	GetPayment(ctx context.Context, userID, orderID, paymentID uuid.UUID) (*model.Payment, error)
}

type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, req dto.ListProductsRequest) ([]dto.ProductResponse, int, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	SetStock(ctx context.Context, id uuid.UUID, size string, stock int) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]dto.CategoryResponse, error)
	CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error)
}

type AuthService interface {
	Register(ctx context.Context, req dto.SignupRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
}

// WebhookParser verifies processor callbacks. A nil message means the event
// needs no action.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*model.PaymentStatusMessage, error)
}
