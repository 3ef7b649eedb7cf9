package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"venuedir/config"
	"venuedir/models"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sessionRouter(required bool) *gin.Engine {
	r := gin.New()
	r.GET("/", SessionMiddleware(required), func(c *gin.Context) {
		c.JSON(http.StatusOK, SessionFrom(c))
	})
	return r
}

func TestSessionMiddleware(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	defer func() { config.AppConfig.JWTSecret = "" }()

	token, err := utils.GenerateToken(utils.SessionClaims{UserID: "u1", UserName: "Ana"}, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name     string
		required bool
		header   string
		status   int
		body     string
	}{
		{"required without token", true, "", http.StatusUnauthorized, ""},
		{"optional without token", false, "", http.StatusOK, `"userId":""`},
		{"valid token", true, "Bearer " + token, http.StatusOK, `"userId":"u1"`},
		{"garbage token", false, "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			sessionRouter(tc.required).ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Contains(t, w.Body.String(), tc.body)
			}
		})
	}
}

func TestSessionFrom_DefaultsToAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, models.Session{}, SessionFrom(c))
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("203.0.113.1"))
	assert.Equal(t, http.StatusOK, do("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("203.0.113.1"))
	assert.Equal(t, http.StatusOK, do("203.0.113.2"))
}

func TestRequestLogger_StoresScopedLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) {
		l, ok := c.Get(utils.LoggerContextKey)
		require.True(t, ok)
		l.(*zap.Logger).Info("inside")
		c.Status(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "req-1", entry.ContextMap()["requestId"])
	}
	done := logs.FilterMessage("Request handled").All()
	require.Len(t, done, 1)
	assert.EqualValues(t, http.StatusTeapot, done[0].ContextMap()["status"])
}
