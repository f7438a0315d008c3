package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfactory/portal/pkg/jwt"
)

func newAuthRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager := jwt.NewManager(jwt.DefaultConfig())
	token, _, err := jwtManager.GenerateAccessToken(uuid.New().String(), "user@example.com", "Test User")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/api", JWTAuth(jwtManager), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/ws", JWTAuthWebSocket(jwtManager), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, token
}

func TestJWTAuthRejectsQueryToken(t *testing.T) {
	router, token := newAuthRouter(t)

	// A valid token in the query string must not authenticate API routes.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api?token="+token, nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthWebSocketAcceptsQueryToken(t *testing.T) {
	router, token := newAuthRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
