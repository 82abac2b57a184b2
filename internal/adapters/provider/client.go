// Package provider implements the outbound HTTP fetch capability against a
// sports-data provider, with bounded retry and retryable-vs-fatal
// classification
package provider

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/logger"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUA        = "fieldday-source"
	defaultMaxRetry  = 4
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryCap  = 8 * time.Second

	// maxBodyBytes caps a single document read; provider documents are small
	maxBodyBytes = 8 << 20
)

// Options configures the Client
type Options struct {
	UserAgent string
	Timeout   time.Duration

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// Client fetches provider resources as raw text
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("provider"),
		sleep: time.Sleep,
	}
}

// Fetch GETs url and returns the body plus the URL actually served, which
// differs from url when the provider redirected. Transient failures (network,
// 429, 5xx) are retried with exponential backoff up to MaxRetries; other
// statuses fail fast with a non-retryable error. A cancelled ctx aborts
// between attempts.
func (c *Client) Fetch(ctx context.Context, url string) (body []byte, finalURL string, err error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.RetryBase
	bo.MaxInterval = defaultRetryCap

	for attempt := 0; ; attempt++ {
		body, finalURL, err = c.fetchOnce(ctx, url)
		if err == nil || !perr.Retryable(err) {
			return body, finalURL, err
		}
		if attempt+1 >= c.opts.MaxRetries {
			return nil, "", perr.Wrapf(err, perr.ErrorCodeUnavailable,
				"provider: giving up on %s after %d attempts", url, attempt+1)
		}

		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = defaultRetryCap
		}
		c.log.Warn().Str("url", url).Int("attempt", attempt+1).Dur("sleep", sleep).
			Err(err).Msg("transient fetch failure; retrying")
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", perr.Wrap(err, perr.ErrorCodeInvalidArgument, "provider: bad request url")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", perr.Wrap(err, perr.ErrorCodeUnavailable, "provider: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, "", perr.Wrap(err, perr.ErrorCodeUnavailable, "provider: read body")
		}
		return b, final, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", perr.NotFoundf("provider: %s returned 404", url)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, "", perr.Unavailablef("provider: %s returned %d", url, resp.StatusCode)
	default:
		return nil, "", perr.InvalidArgf("provider: %s returned %d", url, resp.StatusCode)
	}
}
