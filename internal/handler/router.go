package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/logger"
	"github.com/flicky/go-storefront-api/internal/middleware"
)

type RouterConfig struct {
	JWTSecret      string
	RequestTimeout time.Duration
	AllowedOrigin  string
	// RateLimiter is optional; nil disables per-IP limiting.
	RateLimiter *middleware.RateLimiter
}

type Handlers struct {
	Auth     *AuthHandler
	Products *ProductHandler
	Orders   *OrderHandler
	Payments *PaymentHandler
	Health   *HealthHandler
}

func NewRouter(cfg RouterConfig, h Handlers, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(log), middleware.CORS(cfg.AllowedOrigin))

	r.GET("/healthz", h.Health.Healthz)
	r.GET("/readyz", h.Health.Readyz)

	api := r.Group("/api")
	if cfg.RequestTimeout > 0 {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}

	// Signed by the processor, not by a user token.
	api.POST("/stripe/webhook", h.Payments.StripeWebhook)

	auth := api.Group("/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)

	authed := middleware.AuthMiddleware(cfg.JWTSecret)
	admin := api.Group("", authed, middleware.AdminOnly())

	api.GET("/products", h.Products.List)
	api.GET("/products/:productId", h.Products.GetByID)
	admin.POST("/products", h.Products.Create)
	admin.PUT("/products/:productId", h.Products.Update)
	admin.DELETE("/products/:productId", h.Products.Delete)
	admin.PUT("/products/:productId/sizes/:size", h.Products.SetStock)

	api.GET("/categories", h.Products.ListCategories)
	admin.POST("/categories", h.Products.CreateCategory)

	admin.GET("/orders", h.Orders.ListAllOrders)

	orders := api.Group("/users/:userId/order", authed, middleware.SelfOrAdmin("userId"))
	orders.POST("", h.Orders.CreateOrder)
	orders.GET("", h.Orders.ListUserOrders)
	orders.GET("/:orderId", h.Orders.GetOrder)
	orders.PUT("/:orderId", h.Orders.PatchOrder)
	orders.DELETE("/:orderId", h.Orders.DeleteOrder)

	orders.GET("/:orderId/order_details", h.Orders.ListOrderDetails)
	orders.POST("/:orderId/order_details", h.Orders.AddOrderDetail)
	orders.GET("/:orderId/order_details/:detailId", h.Orders.GetOrderDetail)

	orders.POST("/:orderId/payments", h.Payments.CreatePayment)
	orders.GET("/:orderId/payments", h.Payments.ListPayments)
	orders.GET("/:orderId/payments/:paymentId", h.Payments.GetPayment)
	orders.PUT("/:orderId/payments/:paymentId", h.Payments.UpdatePaymentStatus)
	orders.POST("/:orderId/payments/:paymentId/checkout", h.Payments.CreateCheckoutSession)

	return r
}
