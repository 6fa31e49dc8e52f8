package bot

import (
	"net/http"
	"time"

	"discord-security-bot/internal/metrics"
)

// metricsTransport times every Discord REST call and feeds the
// Prometheus histogram, so slow API periods show up on the dashboard
// instead of only as mysterious enforcement lag.
type metricsTransport struct {
	base http.RoundTripper
}

func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	metrics.RESTRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	return resp, err
}
