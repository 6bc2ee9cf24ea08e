package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope for every JSON reply.
type APIResponse struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

// Success writes a success envelope with the given status.
func Success(ctx *gin.Context, status int, data interface{}, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, APIResponse{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
	})
}

// Error writes a failure envelope with the given status.
func Error(ctx *gin.Context, status int, message string, details interface{}) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.JSON(status, APIResponse{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   false,
		Message:   message,
		Error:     details,
	})
}

// AbortError writes a failure envelope and aborts the handler chain.
func AbortError(ctx *gin.Context, status int, message string, details interface{}) {
	Error(ctx, status, message, details)
	ctx.Abort()
}
