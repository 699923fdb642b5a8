// Package provider holds what the lyrics providers share: an HTTP accessor
// that never lets a remote failure escape as an error, and the candidate
// chooser that runs a match strategy and optionally asks the user.
//
// The Provider interface itself is defined in internal/lyrics, where it is
// consumed. Each sub-package here implements it for one service.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"lrcfetch/internal/logger"
	"lrcfetch/internal/match"
	"lrcfetch/internal/track"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "lrcfetch/1.0"

const maxRetryAfter = 10 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnauthorized is returned by Get when the service answers 401, so the
// caller can drop the token it sent.
var ErrUnauthorized = errors.New("credentials rejected")

// Options carries the settings every provider takes.
type Options struct {
	Policy     match.Policy
	Floor      float64           // 0 uses match.DefaultFloor
	Normalizer *match.Normalizer // nil uses the default protected names
	Confirm    Confirmer         // nil rejects every doubtful match
	UserAgent  string
	Logger     *logger.Logger
}

// Log returns the configured logger or one that discards output.
func (o Options) Log() *logger.Logger {
	if o.Logger == nil {
		return logger.Discard()
	}
	return o.Logger
}

// HTTP performs JSON requests for a provider. Failures are logged at debug
// level and reported as a false return, so callers treat them as "no data".
type HTTP struct {
	Client    *http.Client
	UserAgent string

	name       string
	logger     *logger.Logger
	retryDelay time.Duration
}

// NewHTTP creates an accessor whose log lines are tagged with name.
func NewHTTP(name, userAgent string, log *logger.Logger) *HTTP {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if log == nil {
		log = logger.Discard()
	}
	return &HTTP{
		Client:     &http.Client{Timeout: 10 * time.Second},
		UserAgent:  userAgent,
		name:       name,
		logger:     log,
		retryDelay: 2 * time.Second,
	}
}

// GetJSON fetches rawURL with params appended and decodes the body into v.
func (h *HTTP) GetJSON(ctx context.Context, rawURL string, params url.Values, header http.Header, v interface{}) bool {
	return h.Get(ctx, rawURL, params, header, v) == nil
}

// Get is GetJSON reporting why it failed. The error is already logged;
// only ErrUnauthorized is worth acting on.
func (h *HTTP) Get(ctx context.Context, rawURL string, params url.Values, header http.Header, v interface{}) error {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	return h.doJSON(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	}, header, v)
}

func (h *HTTP) doJSON(ctx context.Context, build func() (*http.Request, error), header http.Header, v interface{}) error {
	data, err := h.fetch(ctx, build, header)
	if err != nil {
		h.logger.Debug("%s: %v", h.name, err)
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		h.logger.Debug("%s: failed to decode response: %v", h.name, err)
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// fetch runs the request, retrying once on a transient network error or a
// 429 response.
func (h *HTTP) fetch(ctx context.Context, build func() (*http.Request, error), header http.Header) ([]byte, error) {
	data, wait, err := h.once(build, header)
	if err == nil || wait < 0 {
		return data, err
	}

	h.logger.Debug("%s: %v, retrying in %s", h.name, err, wait)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}

	data, _, err = h.once(build, header)
	return data, err
}

// once performs a single request. A non-negative wait means the failure is
// worth one retry after that long.
func (h *HTTP) once(build func() (*http.Request, error), header http.Header) ([]byte, time.Duration, error) {
	req, err := build()
	if err != nil {
		return nil, -1, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		if isTransient(err) {
			return nil, h.retryDelay, fmt.Errorf("request failed: %w", err)
		}
		return nil, -1, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retryAfter(resp.Header.Get("Retry-After")), errors.New("rate limited")
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, -1, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, -1, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to read response: %w", err)
	}
	return data, 0, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryAfter(value string) time.Duration {
	wait := time.Second
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		wait = time.Duration(secs) * time.Second
	}
	if wait > maxRetryAfter {
		wait = maxRetryAfter
	}
	return wait
}

// Confirmer decides whether to keep a match whose fields disagree with the
// local track.
type Confirmer interface {
	Confirm(provider string, diags match.Diagnostics) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(provider string, diags match.Diagnostics) bool

func (f ConfirmFunc) Confirm(provider string, diags match.Diagnostics) bool { return f(provider, diags) }

// Choose runs strategy over candidates. A result that was not accepted but
// carries diagnostics is offered to confirm; anything else not accepted is
// ErrNoMatch.
func Choose[C any](name string, strategy match.Strategy[C], candidates []C, local track.Track, confirm Confirmer) (C, error) {
	var zero C
	res, err := strategy.Resolve(candidates, local)
	if err != nil {
		return zero, err
	}
	if res.Accepted {
		return res.Candidate, nil
	}
	if len(res.Diagnostics) > 0 && confirm != nil && confirm.Confirm(name, res.Diagnostics) {
		return res.Candidate, nil
	}
	return zero, match.ErrNoMatch
}
