package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubtip/tubtip/internal/pkg/apperror"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware)
	app.Get("/tips/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing/:id", func(c *fiber.Ctx) error { return apperror.NotFound("nope") })

	okBefore := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/tips/:id", "200"))
	nfBefore := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/missing/:id", "404"))

	_, err := app.Test(httptest.NewRequest("GET", "/tips/1", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/tips/2", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/missing/3", nil))
	require.NoError(t, err)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/tips/:id", "200")))
	assert.Equal(t, nfBefore+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/missing/:id", "404")))
}

func TestTimerObservesDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_timer_seconds"})
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer.ObserveDuration(h)

	assert.Equal(t, 1, testutil.CollectAndCount(h))
}

func TestScrapeAfterMixedMethods(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware)
	app.Post("/scrape/logout", func(c *fiber.Ctx) error { return c.SendString("bye") })
	app.Get("/scrape/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(Handler()))

	for _, req := range []struct{ method, path string }{
		{"POST", "/scrape/logout"},
		{"GET", "/scrape/health"},
		{"GET", "/scrape/health"},
		{"POST", "/scrape/logout"},
	} {
		_, err := app.Test(httptest.NewRequest(req.method, req.path, nil))
		require.NoError(t, err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode, string(body))

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/scrape/logout", "200")))
	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/scrape/health", "200")))
	assert.Contains(t, string(body), `method="POST",route="/scrape/logout"`)
}
