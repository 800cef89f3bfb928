package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelsAndInflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/v1/loads/:id", func(c *gin.Context) { c.String(http.StatusOK, "{}") })
	r.DELETE("/statusonly", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/loads/:id", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404"))
	base204 := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/statusonly", "204"))

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/loads/abc", http.StatusOK},
		{http.MethodGet, "/api/v1/loads/def", http.StatusOK},
		{http.MethodGet, "/wp-admin/setup.php", http.StatusNotFound},
		{http.MethodDelete, "/statusonly", http.StatusNoContent},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s -> %d; want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/loads/:id", "200")); got != baseOK+2 {
		t.Fatalf("route counter = %v; want %v", got, baseOK+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404")); got != base404+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, base404+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/statusonly", "204")); got != base204+1 {
		t.Fatalf("204 counter = %v; want %v", got, base204+1)
	}
	if n := testutil.ToFloat64(httpInflight); n != 0 {
		t.Fatalf("inflight = %v; want 0", n)
	}
}
