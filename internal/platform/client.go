package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/maheshrc27/ghst/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Options configures the HTTP client shared by every publisher.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// RatePerSecond and Burst bound outbound calls per platform.
	RatePerSecond float64
	Burst         int
}

func (o Options) withDefaults(baseURL string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 5
	}
	if o.Burst <= 0 {
		o.Burst = 5
	}
	return o
}

type response struct {
	Status int
	Header http.Header
	Body   []byte
}

// client issues requests against one platform API through a rate limiter
// and a circuit breaker. Only retryable failures count against the breaker.
type client struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*response]
}

func newClient(name string, opts Options) *client {
	cbName := name + "-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &client{
		name:    name,
		baseURL: opts.BaseURL,
		http:    opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		cb:      cb,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (c *client) errorf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Platform: c.name, Message: fmt.Sprintf(format, args...), Err: err}
}

// postJSON sends payload as JSON and returns the successful response.
func (c *client) postJSON(ctx context.Context, path string, headers map[string]string, payload interface{}) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, c.errorf(KindValidation, err, "error marshalling payload")
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"
	return c.do(ctx, http.MethodPost, path, headers, body)
}

func (c *client) do(ctx context.Context, method, path string, headers map[string]string, body []byte) (*response, error) {
	resp, err := c.cb.Execute(func() (*response, error) {
		return c.send(ctx, method, path, headers, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name+"-api", "rejected").Inc()
			return nil, c.errorf(KindNetwork, err, "circuit open")
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.name+"-api", "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name+"-api", "success").Inc()
	return resp, nil
}

func (c *client) send(ctx context.Context, method, path string, headers map[string]string, body []byte) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.errorf(KindNetwork, err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, c.errorf(KindValidation, err, "error creating request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.errorf(KindNetwork, err, "HTTP request error")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.errorf(KindNetwork, err, "error reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:       classifyStatus(resp.StatusCode),
			Platform:   c.name,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Message:    truncate(string(respBody), 300),
		}
	}

	return &response{Status: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// truncate keeps at most n bytes of s without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
