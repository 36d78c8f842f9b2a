package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope wraps every service result.
// Flag is true iff Code is a success code; Data is the zero value of T
// (null for pointer payloads) when the operation produced nothing.
type Envelope[T any] struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Flag    bool   `json:"flag"`
	Data    T      `json:"data"`
}

// Success builds a 200 envelope.
func Success[T any](message string, data T) Envelope[T] {
	return Envelope[T]{
		Message: message,
		Code:    http.StatusOK,
		Flag:    true,
		Data:    data,
	}
}

// Failure builds an envelope with Flag=false.
func Failure[T any](code int, message string, data T) Envelope[T] {
	if code == 0 {
		code = http.StatusBadRequest
	}
	return Envelope[T]{
		Message: message,
		Code:    code,
		Flag:    false,
		Data:    data,
	}
}

// Write sends env with the given HTTP status and echoes the request id header.
func Write[T any](ctx *gin.Context, status int, env Envelope[T]) {
	if status == 0 {
		status = http.StatusOK
	}
	if rid := ctx.GetString("request_id"); rid != "" {
		ctx.Header("X-Request-ID", rid)
	}
	ctx.JSON(status, env)
}

// Error writes a failure envelope whose code matches the HTTP status.
func Error(ctx *gin.Context, status int, message string, details any) {
	Write(ctx, status, Failure(status, message, details))
}
