package observability

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

// ObserveRequest wraps one outgoing call: in-flight gauge, latency histogram
// and a transport-error counter when the call never produced a status code.
func (p *Prom) ObserveRequest(method, route string, fn func() (int, error)) (int, error) {
	start := time.Now()

	p.InFlight.WithLabelValues(method, route).Inc()
	status, err := fn()
	p.InFlight.WithLabelValues(method, route).Dec()

	label := "none"

	if status > 0 {
		label = strconv.Itoa(status)
	}

	if err != nil && status == 0 {
		p.ErrorsTotal.WithLabelValues(classifyNetErr(err)).Inc()
	}

	p.RequestsTotal.WithLabelValues(method, route, label).Inc()
	p.RequestsDuration.WithLabelValues(method, route, label).Observe(time.Since(start).Seconds())

	return status, err
}

func classifyNetErr(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
