package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wonny/trendcast/internal/api/middleware"
)

// SuccessResponse represents a successful API response
type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta Meta        `json:"meta"`
}

// Meta represents metadata in response
type Meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count,omitempty"`
}

// Success sends a 200 response with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta(c),
	})
}

// SuccessList sends a 200 response with list data and its length
func SuccessList(c *gin.Context, data interface{}, count int) {
	m := meta(c)
	m.Count = count
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: m,
	})
}

func meta(c *gin.Context) Meta {
	return Meta{
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now(),
	}
}
