package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/catalog/internal/metrics"
)

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/mw-metrics/:id", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	for _, path := range []string{"/mw-metrics/1", "/mw-metrics/2", "/mw-metrics-nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, `catalog_http_requests_total{method="GET",route="/mw-metrics/:id",status="202"} 2`) {
		t.Error("expected both requests under the route template")
	}
	if !strings.Contains(body, `route="unmatched",status="404"`) {
		t.Error("expected unrouted request to be labelled unmatched")
	}
}
