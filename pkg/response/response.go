// Package response writes the JSON envelope shared by every ledger endpoint.
package response

import (
	"errors"
	"net/http"
	"time"

	"game-economy-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Envelope is the body of every response. Successful calls fill Data;
// failures fill ErrorCode (LED_xxx, SYS_xxx, AUTH_xxx, RATE_xxx) and Message.
type Envelope struct {
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Message   string      `json:"message,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// OK answers 200 with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope(c, Envelope{Data: data}))
}

// Created answers 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope(c, Envelope{Data: data}))
}

// Error answers with the ledger error's status and code. Errors outside the
// taxonomy become SYS_002. A persistence failure is transient, so the caller
// is told it may retry.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.InternalError(err)
	}
	if appErr.Code == apperror.CodePersistenceFailure {
		c.Header("Retry-After", "1")
	}
	c.JSON(appErr.HTTPStatus, envelope(c, Envelope{ErrorCode: appErr.Code, Message: appErr.Message}))
}

func envelope(c *gin.Context, e Envelope) Envelope {
	e.RequestID = c.GetString(RequestIDKey)
	if e.RequestID == "" {
		e.RequestID = uuid.NewString()
	}
	e.Timestamp = time.Now().UTC().Truncate(time.Second)
	return e
}
