package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response standard API envelope
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 response with the given payload
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage writes a 200 response with a custom message
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, &Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Created writes a 201 response with the given payload
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, &Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error writes an error response with the given HTTP status
func Error(c *gin.Context, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	c.JSON(status, &Response{
		Code:    status,
		Message: message,
	})
}

// BadRequest writes a 400 response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	Error(c, http.StatusUnauthorized, message)
}

// NotFound writes a 404 response
func NotFound(c *gin.Context, resource string) {
	message := "resource not found"
	if resource != "" {
		message = resource + " not found"
	}
	Error(c, http.StatusNotFound, message)
}

// TooManyRequests writes a 429 response
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "too many requests, please try again later"
	}
	Error(c, http.StatusTooManyRequests, message)
}

// InternalServerError writes a 500 response
func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	Error(c, http.StatusInternalServerError, message)
}
