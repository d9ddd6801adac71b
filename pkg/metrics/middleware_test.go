package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newMetricsRouter(serviceName string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinPrometheusMiddleware(serviceName))
	router.GET("/api/categories/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func serve(router *gin.Engine, path string) {
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func TestGinPrometheusMiddleware_LabelsByRouteTemplate(t *testing.T) {
	// Arrange
	router := newMetricsRouter("route-template-test")
	totalBefore := testutil.CollectAndCount(HttpRequestsTotal)
	durationBefore := testutil.CollectAndCount(HttpRequestDuration)

	// Act
	for _, path := range []string{"/api/categories/1", "/api/categories/2", "/api/categories/3", "/api/categories/4", "/api/categories/5"} {
		serve(router, path)
	}

	// Assert
	assert.Equal(t, 1, testutil.CollectAndCount(HttpRequestsTotal)-totalBefore)
	assert.Equal(t, 1, testutil.CollectAndCount(HttpRequestDuration)-durationBefore)
	assert.Equal(t, 5.0, testutil.ToFloat64(
		HttpRequestsTotal.WithLabelValues("route-template-test", http.MethodGet, "/api/categories/:id", "200"),
	))
}

func TestGinPrometheusMiddleware_UnmatchedRoute(t *testing.T) {
	// Arrange
	router := newMetricsRouter("unmatched-route-test")

	// Act
	serve(router, "/no/such/path/1")
	serve(router, "/no/such/path/2")

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(
		HttpRequestsTotal.WithLabelValues("unmatched-route-test", http.MethodGet, unmatchedRoute, "404"),
	))
}

func TestGinPrometheusMiddleware_SkipsHealth(t *testing.T) {
	// Arrange
	router := newMetricsRouter("health-skip-test")
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	before := testutil.CollectAndCount(HttpRequestsTotal)

	// Act
	serve(router, "/health")

	// Assert
	assert.Equal(t, before, testutil.CollectAndCount(HttpRequestsTotal))
}
