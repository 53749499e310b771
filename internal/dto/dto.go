package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Every response carries a human readable message and an error flag. Field
// names follow the storefront frontend's contract.

type MessageResponse struct {
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

// --- Auth ---

type SignupRequest struct {
	FirstName   string `json:"fname" binding:"required"`
	LastName    string `json:"lname" binding:"required"`
	Email       string `json:"Email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"u_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	IsAdmin     bool      `json:"is_admin"`
}

type AuthResponse struct {
	Message string        `json:"message"`
	Error   bool          `json:"error"`
	Token   string        `json:"token,omitempty"`
	User    *UserResponse `json:"User"`
}

// --- Product ---

type SizeStock struct {
	Size  string `json:"size" binding:"required"`
	Stock int    `json:"stock" binding:"min=0"`
}

type CreateProductRequest struct {
	Name       string          `json:"name" binding:"required"`
	Brand      string          `json:"brand"`
	Price      decimal.Decimal `json:"price"`
	CategoryID *uuid.UUID      `json:"category_c_id"`
	Sizes      []SizeStock     `json:"sizes" binding:"dive"`
}

type UpdateProductRequest struct {
	Name       *string          `json:"name"`
	Brand      *string          `json:"brand"`
	Price      *decimal.Decimal `json:"price"`
	CategoryID *uuid.UUID       `json:"category_c_id"`
}

type SetStockRequest struct {
	Stock int `json:"stock" binding:"min=0"`
}

type ListProductsRequest struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

type ProductResponse struct {
	ID         uuid.UUID       `json:"p_id"`
	Name       string          `json:"name"`
	Brand      string          `json:"brand"`
	Price      decimal.Decimal `json:"price"`
	CategoryID *uuid.UUID      `json:"category_c_id"`
	Sizes      []SizeStock     `json:"sizes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ProductEnvelope struct {
	Message string           `json:"message"`
	Error   bool             `json:"error"`
	Product *ProductResponse `json:"Product"`
}

type ProductListEnvelope struct {
	Message  string            `json:"message"`
	Error    bool              `json:"error"`
	Products []ProductResponse `json:"Products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type CategoryResponse struct {
	ID   uuid.UUID `json:"c_id"`
	Name string    `json:"name"`
}

type CategoryEnvelope struct {
	Message  string            `json:"message"`
	Error    bool              `json:"error"`
	Category *CategoryResponse `json:"Category"`
}

type CategoryListEnvelope struct {
	Message    string             `json:"message"`
	Error      bool               `json:"error"`
	Categories []CategoryResponse `json:"Categories"`
}

// --- Order ---

type CreateOrderRequest struct {
	OrderDate    string    `json:"orderDate" binding:"required"`
	PromisedDate string    `json:"promisedDate" binding:"required"`
	Address      string    `json:"address" binding:"required"`
	ProductID    uuid.UUID `json:"p_id" binding:"required"`
	Size         string    `json:"size" binding:"required"`
	Quantity     int       `json:"quantity" binding:"required,min=1"`
}

type PatchOrderRequest struct {
	PromisedDate *string `json:"promisedDate"`
	Address      *string `json:"address"`
}

type AddOrderDetailRequest struct {
	ProductID uuid.UUID `json:"p_id" binding:"required"`
	Size      string    `json:"size" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type OrderDetailResponse struct {
	ID        uuid.UUID       `json:"od_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"od_price"`
	ProductID uuid.UUID       `json:"product_p_id"`
	OrderID   uuid.UUID       `json:"order_o_id"`
	Size      string          `json:"size"`
}

type OrderResponse struct {
	ID           uuid.UUID             `json:"o_id"`
	OrderDate    string                `json:"order_date"`
	PromisedDate string                `json:"promised_date"`
	Address      string                `json:"address"`
	TotalAmount  decimal.Decimal       `json:"total_amount"`
	UserID       uuid.UUID             `json:"user_u_id"`
	IsComplete   bool                  `json:"is_complete"`
	Details      []OrderDetailResponse `json:"order_details,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

type OrderEnvelope struct {
	Message string         `json:"message"`
	Error   bool           `json:"error"`
	Orders  *OrderResponse `json:"Orders"`
}

type OrderListEnvelope struct {
	Message string          `json:"message"`
	Error   bool            `json:"error"`
	Orders  []OrderResponse `json:"Orders"`
}

type OrderDetailEnvelope struct {
	Message      string               `json:"message"`
	Error        bool                 `json:"error"`
	OrderDetails *OrderDetailResponse `json:"OrderDetails"`
	Order        *OrderResponse       `json:"Order,omitempty"`
}

type OrderDetailListEnvelope struct {
	Message      string                `json:"message"`
	Error        bool                  `json:"error"`
	OrderDetails []OrderDetailResponse `json:"OrderDetails"`
}

// --- Payment ---

type CreatePaymentRequest struct {
	Amount decimal.Decimal `json:"paymentAmount"`
	Method string          `json:"paymentMethod"`
}

type UpdatePaymentStatusRequest struct {
	Status string `json:"paymentStatus"`
}

type PaymentResponse struct {
	ID      uuid.UUID       `json:"payment_id"`
	Amount  decimal.Decimal `json:"payment_amount"`
	Date    time.Time       `json:"payment_date"`
	Method  string          `json:"payment_method"`
	OrderID uuid.UUID       `json:"order_o_id"`
	Status  string          `json:"status"`
}

type PaymentEnvelope struct {
	Message string           `json:"message"`
	Error   bool             `json:"error"`
	Payment *PaymentResponse `json:"Payment"`
}

type PaymentListEnvelope struct {
	Message  string            `json:"message"`
	Error    bool              `json:"error"`
	Payments []PaymentResponse `json:"Payments"`
}

type CheckoutSessionResponse struct {
	Message   string `json:"message"`
	Error     bool   `json:"error"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type WebhookResponse struct {
	Message  string `json:"message"`
	Error    bool   `json:"error"`
	Received bool   `json:"received"`
}
