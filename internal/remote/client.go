package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/microweb/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 250 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second

	// maxBodyBytes caps how much of a response is read
	maxBodyBytes = 64 << 10
)

// Settings are the user-editable device values.
type Settings struct {
	SSID   string
	PSK    string
	TimeOn time.Duration
}

// Client drives a remote microweb device over HTTP
type Client struct {
	// BaseURL is the base URL for the device (e.g., "http://192.168.4.16:80")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration
}

// NewClient creates a client for the device at host and port
func NewClient(host string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewClientWithURL creates a new client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping fetches the document root and reports whether the device answered.
// A 404 still proves a microweb server is listening.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/", nil, http.StatusOK, http.StatusNotFound)
	return err
}

// Pulse asks the device to pulse its relay after delay (rounded down to
// whole seconds). A zero delay pulses immediately.
func (c *Client) Pulse(ctx context.Context, delay time.Duration) error {
	if delay < 0 {
		return newValidationError("delay must not be negative")
	}
	path := "/pulse"
	if delay > 0 {
		path += "?delay=" + strconv.Itoa(int(delay/time.Second))
	}
	_, err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK)
	return err
}

// SettingsPage returns the rendered settings page.
func (c *Client) SettingsPage(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodGet, "/settings", nil, http.StatusOK)
}

// UpdateSettings submits the settings form and returns the re-rendered page.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) (string, error) {
	if s.TimeOn < time.Millisecond {
		return "", newValidationError("timeOn must be at least 1ms")
	}
	if strings.ContainsAny(s.SSID+s.PSK, "\r\n") {
		return "", newValidationError("ssid and psk must be single-line")
	}
	form := url.Values{}
	form.Set("ssid", s.SSID)
	form.Set("psk", s.PSK)
	form.Set("timeOn", strconv.FormatInt(s.TimeOn.Milliseconds(), 10))
	return c.do(ctx, http.MethodPost, "/settings", form, http.StatusOK)
}

// do runs one request with retries and exponential backoff
func (c *Client) do(ctx context.Context, method, path string, form url.Values, accept ...int) (string, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug("Retrying device request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", currentDelay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(currentDelay):
			}
			currentDelay *= 2
			if currentDelay > c.MaxRetryDelay {
				currentDelay = c.MaxRetryDelay
			}
		}

		body, err := c.attempt(ctx, method, path, form, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, form url.Values, accept []int) (string, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return "", newValidationError(fmt.Sprintf("invalid request: %v", err))
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", classifyNetworkError(method+" "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Responses are close-delimited, so the body ends at EOF.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", classifyNetworkError("failed to read response body", err)
	}

	for _, code := range accept {
		if resp.StatusCode == code {
			return string(data), nil
		}
	}
	return "", newHTTPError(resp.StatusCode, strings.TrimSpace(string(data)))
}
