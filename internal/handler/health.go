package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is reachable.
type Check struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []Check
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{"status": "ok"}
	status := http.StatusOK

	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			body[chk.Name] = "unavailable"
			body["status"] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		body[chk.Name] = "connected"
	}
	c.JSON(status, body)
}
