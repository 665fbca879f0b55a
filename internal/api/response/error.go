package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/api/middleware"
	"github.com/wonny/trendcast/internal/domain/price"
)

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code      string    `json:"code"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes
const (
	ErrCodeInternalServer      = "INTERNAL_SERVER_ERROR"
	ErrCodeInvalidParameter    = "INVALID_PARAMETER"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeInsufficientHistory = "INSUFFICIENT_HISTORY"
	ErrCodeDataShape           = "DATA_SHAPE"
)

// Error sends an error response
func Error(c *gin.Context, statusCode int, code, message string) {
	send(c, statusCode, ErrorDetail{Code: code, Message: message})
}

// BadRequest sends a 400 Bad Request error
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// NotFound sends a 404 Not Found error
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// FromError maps a pipeline error to a status code by its kind
func FromError(c *gin.Context, err error) {
	detail := ErrorDetail{
		Kind:    price.Kind(err),
		Details: err.Error(),
	}

	var status int
	switch {
	case errors.Is(err, price.ErrConfiguration):
		status, detail.Code, detail.Message = http.StatusBadRequest, ErrCodeInvalidParameter, "Invalid request"
	case errors.Is(err, price.ErrInsufficientHistory):
		status, detail.Code, detail.Message = http.StatusUnprocessableEntity, ErrCodeInsufficientHistory, "Not enough price history"
	case errors.Is(err, price.ErrPersistence):
		status, detail.Code, detail.Message = http.StatusServiceUnavailable, ErrCodeDatabaseError, "Price table unavailable"
	case errors.Is(err, price.ErrDataShape):
		status, detail.Code, detail.Message = http.StatusInternalServerError, ErrCodeDataShape, "Stored prices are malformed"
	default:
		status, detail.Code, detail.Message = http.StatusInternalServerError, ErrCodeInternalServer, "An unexpected error occurred"
	}

	_ = c.Error(err)
	send(c, status, detail)
}

func send(c *gin.Context, status int, detail ErrorDetail) {
	detail.RequestID = middleware.GetRequestID(c)
	detail.Timestamp = time.Now()

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Str("request_id", detail.RequestID).
		Str("error_code", detail.Code).
		Str("kind", detail.Kind).
		Int("status", status).
		Msg(detail.Message)

	c.AbortWithStatusJSON(status, ErrorResponse{Error: detail})
}
