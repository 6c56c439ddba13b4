package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupLimitedRouter(rps int, exempt ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(rps, exempt...))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.GET("/health", ok)
	router.GET("/api/view", ok)
	return router
}

func TestRateLimit_RejectsBurst(t *testing.T) {
	router := setupLimitedRouter(2)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/view").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/view").Code)

	w := doRequest(router, http.MethodGet, "/api/view")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimit_ExemptPaths(t *testing.T) {
	router := setupLimitedRouter(1, "/health")

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/view").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, http.MethodGet, "/api/view").Code)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health").Code)
	}
}
