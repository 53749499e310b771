package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/repository"
	"github.com/flicky/go-storefront-api/internal/service"
)

type OrderHandler struct {
	orders OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// orderPath reads the :userId and :orderId parameters. Access to :userId has
// already been checked by the route guard.
func orderPath(c *gin.Context) (userID, orderID uuid.UUID, ok bool) {
	if userID, ok = uuidParam(c, "userId", "Invalid user id"); !ok {
		return
	}
	orderID, ok = uuidParam(c, "orderId", "Invalid order id")
	return
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := uuidParam(c, "userId", "Invalid user id")
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrMissingOrderFields.Message)
		return
	}
	orderDate, err := parseDate(req.OrderDate)
	if err != nil {
		badRequest(c, "Invalid orderDate")
		return
	}
	promisedDate, err := parseDate(req.PromisedDate)
	if err != nil {
		badRequest(c, "Invalid promisedDate")
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), userID, service.CreateOrderInput{
		OrderDate:    orderDate,
		PromisedDate: promisedDate,
		Address:      req.Address,
		OrderLine:    service.OrderLine{ProductID: req.ProductID, Size: req.Size, Quantity: req.Quantity},
	})
	if err != nil {
		respondError(c, h.log, err, "Error creating order")
		return
	}

	resp := toOrderResponse(order)
	c.JSON(http.StatusCreated, dto.OrderEnvelope{Message: "Order created successfully", Orders: &resp})
}

func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	userID, ok := uuidParam(c, "userId", "Invalid user id")
	if !ok {
		return
	}
	h.listOrders(c, &userID)
}

// ListAllOrders is the admin view over every user's orders.
func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	h.listOrders(c, nil)
}

// listOrders answers 404 with an empty list when nothing matches; the
// storefront relies on that status.
func (h *OrderHandler) listOrders(c *gin.Context, userID *uuid.UUID) {
	orders, err := h.orders.ListOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err, "Error fetching orders")
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	if len(items) == 0 {
		c.JSON(http.StatusNotFound, dto.OrderListEnvelope{Message: "No orders found", Orders: items})
		return
	}
	c.JSON(http.StatusOK, dto.OrderListEnvelope{Message: "Orders found", Orders: items})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, orderID, ok := orderPath(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, dto.OrderEnvelope{Message: "Order not found"})
			return
		}
		respondError(c, h.log, err, "Error fetching order")
		return
	}

	resp := toOrderResponse(order)
	c.JSON(http.StatusOK, dto.OrderEnvelope{Message: "Order found", Orders: &resp})
}

func (h *OrderHandler) PatchOrder(c *gin.Context) {
	userID, orderID, ok := orderPath(c)
	if !ok {
		return
	}

	var req dto.PatchOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrNoFieldsToUpdate.Message)
		return
	}

	var patch repository.OrderPatch
	if req.PromisedDate != nil && strings.TrimSpace(*req.PromisedDate) != "" {
		d, err := parseDate(*req.PromisedDate)
		if err != nil {
			badRequest(c, "Invalid promisedDate")
			return
		}
		patch.PromisedDate = &d
	}
	patch.Address = req.Address

	order, err := h.orders.PatchOrder(c.Request.Context(), userID, orderID, patch)
	if err != nil {
		respondError(c, h.log, err, "Error updating order")
		return
	}

	resp := toOrderResponse(order)
	c.JSON(http.StatusOK, dto.OrderEnvelope{Message: "Order updated successfully", Orders: &resp})
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	userID, orderID, ok := orderPath(c)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), userID, orderID); err != nil {
		respondError(c, h.log, err, "Error deleting order")
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Order deleted successfully"})
}

func (h *OrderHandler) AddOrderDetail(c *gin.Context) {
	userID, orderID, ok := orderPath(c)
	if !ok {
		return
	}

	var req dto.AddOrderDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrMissingOrderFields.Message)
		return
	}

	detail, order, err := h.orders.AddOrderDetail(c.Request.Context(), userID, orderID, service.OrderLine{
		ProductID: req.ProductID, Size: req.Size, Quantity: req.Quantity,
	})
	if err != nil {
		respondError(c, h.log, err, "Error creating order detail")
		return
	}

	d := toOrderDetailResponse(*detail)
	o := toOrderResponse(order)
	c.JSON(http.StatusCreated, dto.OrderDetailEnvelope{Message: "Order detail created", OrderDetails: &d, Order: &o})
}

func (h *OrderHandler) ListOrderDetails(c *gin.Context) {
	userID, orderID, ok := orderPath(c)
	if !ok {
		return
	}

	details, err := h.orders.ListOrderDetails(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, h.log, err, "Internal server error")
		return
	}
	if len(details) == 0 {
		respondError(c, h.log, service.ErrOrderDetailNotFound, "")
		return
	}

	items := make([]dto.OrderDetailResponse, 0, len(details))
	for _, d := range details {
		items = append(items, toOrderDetailResponse(d))
	}
	c.JSON(http.StatusOK, dto.OrderDetailListEnvelope{Message: "Order details found", OrderDetails: items})
}

func (h *OrderHandler) GetOrderDetail(c *gin.Context) {
	userID, orderID, ok := orderPath(c)
	if !ok {
		return
	}
	detailID, ok := uuidParam(c, "detailId", "Invalid order detail id")
	if !ok {
		return
	}

	detail, err := h.orders.GetOrderDetail(c.Request.Context(), userID, orderID, detailID)
	if err != nil {
		respondError(c, h.log, err, "Internal server error")
		return
	}

	d := toOrderDetailResponse(*detail)
	c.JSON(http.StatusOK, dto.OrderDetailEnvelope{Message: "Order detail found", OrderDetails: &d})
}
