// Package middleware provides gin middleware for the portal API
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelfactory/portal/pkg/jwt"
	"github.com/modelfactory/portal/pkg/logger"
	"github.com/modelfactory/portal/pkg/ratelimit"
	"github.com/modelfactory/portal/pkg/response"
)

const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
)

// JWTAuth authenticates requests with a Bearer access token
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return authenticate(jwtManager, false)
}

// JWTAuthWebSocket additionally accepts a token query parameter, since
// browser WebSocket clients cannot set an Authorization header. Query
// strings end up in access logs, so this stays off the regular routes.
func JWTAuthWebSocket(jwtManager *jwt.Manager) gin.HandlerFunc {
	return authenticate(jwtManager, true)
}

func authenticate(jwtManager *jwt.Manager, allowQueryToken bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c, allowQueryToken)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "authorization header required")
			c.Abort()
			return
		}

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			logger.Log.Warn("Token validation failed", zap.Error(err))
			response.Error(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserEmail, claims.Email)

		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQueryToken bool) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1], true
		}
		return "", false
	}
	if allowQueryToken {
		if token := c.Query("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// CurrentUserID returns the authenticated user's ID from the context
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequestLogger logs each request with latency and status
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			logger.Log.Error("Request failed", fields...)
		} else if status >= 500 {
			logger.Log.Error("Server error", fields...)
		} else if status >= 400 {
			logger.Log.Warn("Client error", fields...)
		} else {
			logger.Log.Info("Request processed", fields...)
		}
	}
}

// Recovery converts panics into 500 responses
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Log.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		response.Error(c, http.StatusInternalServerError, "internal server error")
	})
}

// CORS sets permissive cross-origin headers
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimit throttles requests per client, preferring the authenticated
// user over the client IP as the bucket key
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, exists := c.Get(ContextKeyUserID); exists {
			key = userID.(string)
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// A broken limiter backend must not take the API down.
			logger.Log.Error("Rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			response.TooManyRequests(c, "too many requests, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
