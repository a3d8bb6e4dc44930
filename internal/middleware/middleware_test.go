package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func setupLogger(t *testing.T) {
	var err error
	logger.Log, err = zap.NewDevelopment()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
}

// Without Redis the limiter falls back to the in-process token bucket
func TestRateLimitFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupLogger(t)

	router := gin.New()
	router.Use(RateLimit(RateLimitConfig{Limit: 3, Window: time.Minute}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
	}

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
}

func TestMetricsMiddleware_StatusCodesAreNumeric(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupLogger(t)

	m := metrics.Initialize()
	m.HTTPRequestsTotal.Reset()

	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/test200", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/test500", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	for _, path := range []string{"/test200", "/test500"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}

	ok := m.HTTPRequestsTotal.WithLabelValues("GET", "/test200", "200")
	assert.Equal(t, float64(1), testutil.ToFloat64(ok))

	boom := m.HTTPRequestsTotal.WithLabelValues("GET", "/test500", "500")
	assert.Equal(t, float64(1), testutil.ToFloat64(boom))
}

func TestCacheMetricHelpers(t *testing.T) {
	m := metrics.Initialize()
	m.CacheHitsTotal.Reset()
	m.CacheMissesTotal.Reset()

	RecordCacheHit("trending")
	RecordCacheHit("trending")
	RecordCacheMiss("trending")

	hits := m.CacheHitsTotal.WithLabelValues("trending")
	assert.Equal(t, float64(2), testutil.ToFloat64(hits))

	misses := m.CacheMissesTotal.WithLabelValues("trending")
	assert.Equal(t, float64(1), testutil.ToFloat64(misses))
}
