package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Result carries the outcome of a single device or cloud request.
type Result struct {
	// Status is the HTTP status code, 0 when the request never reached
	// the endpoint.
	Status int

	// Body is the response body. Populated for 2xx responses only.
	Body []byte
}

// Requester issues HTTP requests with per-call timeouts and classifies
// failures into the package's sentinel error kinds.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Requester struct {
	client  *http.Client
	timeout time.Duration
	maxBody int64
}

// Options configures a Requester.
type Options struct {
	// Timeout is the per-request deadline. Required.
	Timeout time.Duration

	// WithCookies enables a cookie jar; session-based cloud APIs carry
	// their session identity in cookies.
	WithCookies bool

	// MaxBodySize caps the response body read. Default: 1 MiB.
	MaxBodySize int64
}

const defaultMaxBodySize = 1 << 20

// NewRequester creates a Requester from the given options.
func NewRequester(opts Options) (*Requester, error) {
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrTransport)
	}

	client := &http.Client{}
	if opts.WithCookies {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: creating cookie jar: %v", ErrTransport, err)
		}
		client.Jar = jar
	}

	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	client.Transport = http.DefaultTransport

	return &Requester{
		client:  client,
		timeout: opts.Timeout,
		maxBody: maxBody,
	}, nil
}

// Get issues a GET request and returns the classified result.
//
// Parameters:
//   - ctx: Cancellation context; the per-request timeout is layered on top
//   - rawURL: Full request URL
//
// Returns:
//   - *Result: Status and body for 2xx responses
//   - error: Classified error for any failure
func (r *Requester) Get(ctx context.Context, rawURL string) (*Result, error) {
	return r.do(ctx, http.MethodGet, rawURL, "", nil)
}

// PostForm issues a POST request with form-encoded values.
func (r *Requester) PostForm(ctx context.Context, rawURL string, form url.Values) (*Result, error) {
	return r.do(ctx, http.MethodPost, rawURL, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
}

// PostJSON issues a POST request with a JSON body.
func (r *Requester) PostJSON(ctx context.Context, rawURL string, body []byte) (*Result, error) {
	return r.do(ctx, http.MethodPost, rawURL, "application/json", strings.NewReader(string(body)))
}

func (r *Requester) do(ctx context.Context, method, rawURL, contentType string, body io.Reader) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, classifyNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrTransport, err)
	}

	if err := ClassifyStatus(resp.StatusCode); err != nil {
		return &Result{Status: resp.StatusCode}, err
	}

	return &Result{Status: resp.StatusCode, Body: data}, nil
}

// ClassifyStatus maps an HTTP status code to the package's error kinds.
// Returns nil for 2xx statuses.
func ClassifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrSessionExpired, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, status)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrTransport, status)
	}
}

// classifyNetworkError maps client.Do failures to ErrTransport with the
// failure mode preserved in the message.
func classifyNetworkError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: timeout: %v", ErrTransport, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: dns: %v", ErrTransport, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timeout: %v", ErrTransport, err)
	}

	return fmt.Errorf("%w: %v", ErrTransport, err)
}
