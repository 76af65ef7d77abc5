package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/items/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/missing/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/items/:id", "200"))
	beforeMissing := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/missing/:id", "404"))

	for _, path := range []string{"/items/1", "/items/2", "/missing/3"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/items/:id", "200")) - before; got != 2 {
		t.Fatalf("expected 2 counted requests for /items/:id, got %v", got)
	}
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/missing/:id", "404")) - beforeMissing; got != 1 {
		t.Fatalf("expected 1 counted 404, got %v", got)
	}
}
