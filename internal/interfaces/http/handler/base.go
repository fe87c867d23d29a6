package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/salescost/backend/internal/domain/shared"
	"github.com/salescost/backend/internal/infrastructure/logger"
	"github.com/salescost/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// BaseHandler provides the response helpers all handlers share.
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// respond writes an error envelope carrying the request ID.
func respond(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// Success sends a 200 response with the given payload.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with pagination meta.
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response with the given payload.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends an empty 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code.
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, code, message)
}

// ErrorWithCode sends an error response, deriving the status from the code.
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	respond(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 response.
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 response.
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 response.
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	respond(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 response with the given error code.
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	respond(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 response.
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	respond(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain errors to HTTP responses. Wrapped errors
// are unwrapped via errors.As so repositories can decorate causes.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		}
		respond(c, status, code, domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	respond(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}
