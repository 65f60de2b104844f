package ratelimit

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Retry defaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 30 * time.Second
)

// Transport rate limits and retries requests for one account.
type Transport struct {
	// Base performs the request. Defaults to an HTTP/1.1-only transport.
	Base http.RoundTripper

	// Limiters and Key select the token bucket. A nil Limiters disables limiting.
	Limiters *Limiters
	Key      string

	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	Logger *slog.Logger

	// OnRetry observes each retry with the status that caused it, 0 for a
	// transport error.
	OnRetry func(ctx context.Context, status int)

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTransport returns a Transport with default retry settings.
func NewTransport(base http.RoundTripper, limiters *Limiters, key string) *Transport {
	return &Transport{
		Base:       base,
		Limiters:   limiters,
		Key:        key,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// HTTP1Transport returns a transport that never negotiates HTTP/2.
func HTTP1Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return t
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return HTTP1Transport()
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	base := t.base()

	for attempt := 0; ; attempt++ {
		if t.Limiters != nil {
			if err := t.Limiters.Get(t.Key).Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := base.RoundTrip(attemptReq)
		if attempt >= t.MaxRetries || !retryable(ctx, resp, err) || !replayable(req) {
			return resp, err
		}

		delay := t.backoff(attempt, resp)
		status := 0
		if resp != nil {
			status = resp.StatusCode
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
		}

		t.logger().Debug("retrying google api request",
			"attempt", attempt+1,
			"status", status,
			"delay", delay,
			"path", req.URL.Path,
		)
		if t.OnRetry != nil {
			t.OnRetry(ctx, status)
		}

		if err := t.wait(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (t *Transport) wait(ctx context.Context, d time.Duration) error {
	if t.sleep != nil {
		return t.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff returns the delay before the next attempt. Retry-After wins when
// present; otherwise the delay doubles per attempt. Both are capped at MaxDelay.
func (t *Transport) backoff(attempt int, resp *http.Response) time.Duration {
	maxDelay := t.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	if resp != nil {
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			return min(d, maxDelay)
		}
	}

	base := t.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	d := base << attempt
	if d <= 0 || d > maxDelay {
		d = maxDelay
	}
	return d
}

func retryable(ctx context.Context, resp *http.Response, err error) bool {
	if err != nil {
		return ctx.Err() == nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns the request for an attempt, with a fresh body on retries.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
