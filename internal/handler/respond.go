package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/apperr"
	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/logger"
	"github.com/flicky/go-storefront-api/internal/model"
)

const dateLayout = "2006-01-02"

// respondError writes {message, error:true} with the status of err. Causes of
// server side failures are logged, never returned.
func respondError(c *gin.Context, log *zap.Logger, err error, fallback string) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(log, c).Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, dto.MessageResponse{Message: apperr.MessageOf(err, fallback), Error: true})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: message, Error: true})
}

// uuidParam parses a path parameter, answering 400 when it is malformed.
func uuidParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:           o.ID,
		OrderDate:    o.OrderDate.Format(dateLayout),
		PromisedDate: o.PromisedDate.Format(dateLayout),
		Address:      o.Address,
		TotalAmount:  o.TotalAmount,
		UserID:       o.UserID,
		IsComplete:   o.IsComplete,
		CreatedAt:    o.CreatedAt,
	}
	for _, d := range o.Details {
		resp.Details = append(resp.Details, toOrderDetailResponse(d))
	}
	return resp
}

func toOrderDetailResponse(d model.OrderDetail) dto.OrderDetailResponse {
	return dto.OrderDetailResponse{
		ID:        d.ID,
		Quantity:  d.Quantity,
		Price:     d.Price,
		ProductID: d.ProductID,
		OrderID:   d.OrderID,
		Size:      d.Size,
	}
}

func toPaymentResponse(p *model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:      p.ID,
		Amount:  p.Amount,
		Date:    p.Date,
		Method:  p.Method,
		OrderID: p.OrderID,
		Status:  string(p.Status),
	}
}
