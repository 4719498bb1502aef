// Package transport provides the single-request HTTP layer used by the paginator.
// It performs exactly one GET per call, with no retry and no interpretation
// of the response body.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/trade-paginator/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for transport operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_transport_requests_total",
		Help: "Total upstream requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trades_transport_request_duration_seconds",
		Help:    "Upstream request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_transport_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "trade-paginator/0.1.0"

// Transport executes one GET and returns the raw response body.
// Implementations must fail with a *NetworkError, and with the
// ErrorClassTimeout class when no response arrives within timeout.
type Transport interface {
	PerformRequest(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// Config holds the HTTP transport configuration.
type Config struct {
	// UserAgent header sent with every request.
	UserAgent string

	// MaxBodyBytes caps the response size read into memory (0 = unlimited).
	MaxBodyBytes int64
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: 32 << 20,
	}
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new HTTP transport.
func New(cfg Config) *HTTPTransport {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &HTTPTransport{
		// Per-request deadlines come from PerformRequest's timeout.
		httpClient: &http.Client{},
		config:     cfg,
		logger:     logging.NewLogger("transport"),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (t *HTTPTransport) SetHTTPClient(client *http.Client) {
	t.httpClient = client
}

// SetLogger replaces the transport logger.
func (t *HTTPTransport) SetLogger(logger zerolog.Logger) {
	t.logger = logger
}

// PerformRequest issues a single GET to url. A timeout of 0 adds no deadline
// beyond the one already carried by ctx.
func (t *HTTPTransport) PerformRequest(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		// A malformed URL never becomes valid on retry, but the contract
		// only knows one failure type.
		return nil, t.fail(&NetworkError{
			URL:        url,
			ErrorClass: ErrorClassNetwork,
			Message:    "create request",
			Err:        err,
		}, "invalid")
	}
	req.Header.Set("User-Agent", t.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	t.logger.Debug().Str("url", url).Dur("timeout", timeout).Msg("Executing request")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, t.fail(t.classifyError(url, timeout, err), "network_error")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, t.fail(&NetworkError{
			URL:        url,
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		}, strconv.Itoa(resp.StatusCode))
	}

	var body io.Reader = resp.Body
	if t.config.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, t.config.MaxBodyBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		netErr := t.classifyError(url, timeout, err)
		netErr.StatusCode = resp.StatusCode
		netErr.Message = "read body: " + netErr.Message
		return nil, t.fail(netErr, "read_error")
	}

	if t.config.MaxBodyBytes > 0 && int64(len(data)) > t.config.MaxBodyBytes {
		return nil, t.fail(&NetworkError{
			URL:        url,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    fmt.Sprintf("body exceeds %d bytes", t.config.MaxBodyBytes),
		}, "oversize")
	}

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	t.logger.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("duration", time.Since(startTime)).
		Msg("Request completed")

	return data, nil
}

// classifyError turns a client-side failure into a NetworkError.
func (t *HTTPTransport) classifyError(url string, timeout time.Duration, err error) *NetworkError {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &NetworkError{
			URL:        url,
			ErrorClass: ErrorClassTimeout,
			Message:    fmt.Sprintf("no response within %s", timeout),
			Err:        err,
		}
	}

	return &NetworkError{
		URL:        url,
		ErrorClass: ErrorClassNetwork,
		Message:    "request failed",
		Err:        err,
	}
}

// fail records metrics and logs for a failed request.
func (t *HTTPTransport) fail(netErr *NetworkError, status string) *NetworkError {
	requestsTotal.WithLabelValues(status).Inc()
	errorsTotal.WithLabelValues(string(netErr.ErrorClass)).Inc()

	t.logger.Debug().
		Err(netErr).
		Str("url", netErr.URL).
		Str("error_class", string(netErr.ErrorClass)).
		Msg("Request failed")

	return netErr
}
