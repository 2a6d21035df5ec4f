package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse is the uniform envelope for every API response. The body
// status always mirrors the transport status.
type JSONResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Result  interface{} `json:"result"`
	Success bool        `json:"success"`
}

// Respond writes the envelope with the given transport status.
func Respond(ctx *gin.Context, status int, message string, result interface{}, success bool) {
	if result == nil {
		result = []any{}
	}
	ctx.JSON(status, JSONResponse{
		Status:  status,
		Message: message,
		Result:  result,
		Success: success,
	})
}

// Success returns a 200 response.
func Success(ctx *gin.Context, result interface{}) {
	Respond(ctx, http.StatusOK, "success", result, true)
}

// Created returns a 201 response for newly created resources.
func Created(ctx *gin.Context, result interface{}) {
	Respond(ctx, http.StatusCreated, "created", result, true)
}

// Error returns an error response. The message must already be a plain
// string; exception-like payloads never reach the envelope.
func Error(ctx *gin.Context, status int, message string) {
	Respond(ctx, status, message, nil, false)
}
