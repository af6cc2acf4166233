package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tubtip/tubtip/internal/pkg/apperror"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubtip_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubtip_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubtip_webhook_events_total",
			Help: "Payment processor webhook events by type and result",
		},
		[]string{"type", "result"},
	)

	TipsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubtip_tips_recorded_total",
			Help: "Tips recorded from completed checkouts by currency",
		},
		[]string{"currency"},
	)

	JobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubtip_jobs_processed_total",
			Help: "Background jobs processed by type and final status",
		},
		[]string{"type", "status"},
	)

	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubtip_emails_sent_total",
			Help: "Transactional emails handed to the provider by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(TipsRecordedTotal)
	prometheus.MustRegister(JobsProcessedTotal)
	prometheus.MustRegister(EmailsSentTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency per matched route.
func Middleware(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = apperror.From(err).Status()
		}
	}

	// fasthttp reuses the request buffers, and Prometheus keeps label strings.
	method := utils.CopyString(c.Method())
	route := utils.CopyString(c.Route().Path)
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	return err
}

// Timer measures an operation duration.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(time.Since(t.start).Seconds())
}
