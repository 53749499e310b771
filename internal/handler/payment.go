package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/apperr"
	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/logger"
	"github.com/flicky/go-storefront-api/internal/service"
)

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	payments PaymentService
	webhooks WebhookParser
	log      *zap.Logger
}

// NewPaymentHandler builds the payment routes; webhooks may be nil when no
// processor is configured.
func NewPaymentHandler(payments PaymentService, webhooks WebhookParser, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, webhooks: webhooks, log: log}
}

func paymentPath(c *gin.Context) (userID, orderID, paymentID uuid.UUID, ok bool) {
	if userID, orderID, ok = orderPath(c); !ok {
		return
	}
	paymentID, ok = uuidParam(c, "paymentId", "Invalid payment id")
	return
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, orderID, ok := orderPath(c)
	if !ok {
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrPaymentFieldsMissing.Message)
		return
	}

	payment, err := h.payments.CreatePayment(c.Request.Context(), userID, orderID, service.CreatePaymentInput{
		Amount: req.Amount,
		Method: req.Method,
	})
	if err != nil {
		// Closed orders are reported like missing ones on this route.
		if errors.Is(err, service.ErrPaymentOrderClosed) {
			err = service.ErrPaymentOrderMissing
		}
		respondError(c, h.log, err, "Error creating payment.")
		return
	}

	resp := toPaymentResponse(payment)
	c.JSON(http.StatusCreated, dto.PaymentEnvelope{Message: "Payment created successfully.", Payment: &resp})
}

func (h *PaymentHandler) UpdatePaymentStatus(c *gin.Context) {
	userID, orderID, paymentID, ok := paymentPath(c)
	if !ok {
		return
	}

	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrPaymentStatusMissing.Message)
		return
	}

	payment, err := h.payments.UpdatePaymentStatusForOrder(c.Request.Context(), userID, orderID, paymentID, req.Status)
	if err != nil {
		respondError(c, h.log, err, "Error updating payment status.")
		return
	}

	resp := toPaymentResponse(payment)
	c.JSON(http.StatusOK, dto.PaymentEnvelope{Message: "Payment status updated successfully.", Payment: &resp})
}

// ListPayments answers 200 with an empty list when the order has no
// payments.
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userID, orderID, ok := orderPath(c)
	if !ok {
		return
	}

	payments, err := h.payments.ListPayments(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, h.log, err, "Error fetching payments.")
		return
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, toPaymentResponse(&payments[i]))
	}
	c.JSON(http.StatusOK, dto.PaymentListEnvelope{Message: "Payments fetched successfully.", Payments: items})
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, orderID, paymentID, ok := paymentPath(c)
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), userID, orderID, paymentID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, dto.PaymentEnvelope{Message: service.ErrPaymentNotFound.Message, Error: true})
			return
		}
		respondError(c, h.log, err, "Error fetching payment.")
		return
	}

	resp := toPaymentResponse(payment)
	c.JSON(http.StatusOK, dto.PaymentEnvelope{Message: "Payment fetched successfully.", Payment: &resp})
}

func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	userID, orderID, paymentID, ok := paymentPath(c)
	if !ok {
		return
	}

	session, err := h.payments.CreateCheckoutSession(c.Request.Context(), userID, orderID, paymentID)
	if err != nil {
		respondError(c, h.log, err, "Error creating checkout session.")
		return
	}
	c.JSON(http.StatusCreated, dto.CheckoutSessionResponse{
		Message:   "Checkout session created.",
		SessionID: session.ID,
		URL:       session.URL,
	})
}

// StripeWebhook applies verified processor events. Failures the processor can
// fix by retrying answer 500; anything else is acknowledged so it is not
// redelivered forever.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	log := logger.FromGin(h.log, c)
	if h.webhooks == nil {
		c.JSON(http.StatusServiceUnavailable, dto.MessageResponse{Message: service.ErrCheckoutUnavailable.Message, Error: true})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Invalid webhook payload")
		return
	}

	msg, err := h.webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn("rejected webhook", zap.Error(err))
		badRequest(c, "Invalid webhook")
		return
	}
	if msg == nil {
		c.JSON(http.StatusOK, dto.WebhookResponse{Message: "Webhook received", Received: true})
		return
	}

	if err := h.payments.HandleProcessorEvent(c.Request.Context(), *msg); err != nil {
		if apperr.StatusOf(err) >= http.StatusInternalServerError {
			respondError(c, h.log, err, "Error updating payment status.")
			return
		}
		log.Warn("webhook event not applied",
			zap.String("event_id", msg.EventID),
			zap.String("payment_id", msg.PaymentID.String()),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, dto.WebhookResponse{Message: "Webhook received", Received: true})
}
