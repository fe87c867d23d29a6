package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/salescost/backend/internal/infrastructure/persistence"
)

// SystemHandler exposes operational endpoints
type SystemHandler struct {
	BaseHandler
	db *persistence.Database
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database) *SystemHandler {
	return &SystemHandler{db: db}
}

// Health handles GET /healthz. It reports unhealthy with 503 when the
// database does not answer a ping within two seconds.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "up"
	code := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		status = "unhealthy"
		dbStatus = "down"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
