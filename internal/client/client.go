package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/imtihanhq/imtihanctl/internal/observability"
	"github.com/imtihanhq/imtihanctl/internal/reqctx"
	"github.com/imtihanhq/imtihanctl/internal/session"
	"github.com/imtihanhq/imtihanctl/internal/state"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	apiPrefix = "/api/v1"

	// responses are read through this guard so a misbehaving backend
	// cannot balloon client memory
	maxResponseBytes = 10 << 20

	csrfTokenPath = "/auth/csrf-token"
)

type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimitRPS int
	Version      string

	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// Request describes one API call. Route is the path template used for
// metrics labels; Path is the concrete path.
type Request struct {
	Method        string
	Route         string
	Path          string
	Query         url.Values
	Body          any
	Header        http.Header
	Authenticated bool
	AdminOnly     bool
}

type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Client wraps every outgoing request with the session check, CSRF
// handshake, standard headers and the one bounded CSRF retry.
type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
	sess      *session.Session
	csrf      *csrfManager
	prom      *observability.Prom
	log       *slog.Logger
	limiter   *rate.Limiter

	onSessionClear []func()
}

func New(sess *session.Session, store state.Store, prom *observability.Prom, log *slog.Logger, opts Options) *Client {
	transport := opts.Transport

	if transport == nil {
		transport = http.DefaultTransport
	}

	timeout := opts.Timeout

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	version := opts.Version

	if version == "" {
		version = "dev"
	}

	var limiter *rate.Limiter

	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitRPS)
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/") + apiPrefix,
		userAgent: "imtihanctl/" + version,
		httpc: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   timeout,
		},
		sess:    sess,
		csrf:    newCSRFManager(store),
		prom:    prom,
		log:     log,
		limiter: limiter,
	}
}

// OnSessionClear registers a hook run whenever the pipeline clears the
// session (expired token or 401). The query cache uses it to purge.
func (c *Client) OnSessionClear(fn func()) {
	c.onSessionClear = append(c.onSessionClear, fn)
}

func (c *Client) Session() *session.Session {
	return c.sess
}

func (c *Client) Logger() *slog.Logger {
	return c.log
}

// Do runs the full pipeline for one request.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	// admin-only calls fail locally with a non-admin session
	if req.AdminOnly && !c.sess.IsAdmin() {
		c.prom.AuthFailuresTotal.WithLabelValues("forbidden").Inc()
		return nil, &ForbiddenError{}
	}

	// an expired or absent token never reaches the network
	if req.Authenticated && c.sess.IsTokenExpired() {
		c.prom.AuthFailuresTotal.WithLabelValues("expired").Inc()
		return nil, c.endSession(ctx, "expired")
	}

	mutating := isMutating(req.Method)

	if mutating {
		c.ensureCSRFToken(ctx)
	}

	var bodyBytes []byte

	if req.Body != nil {
		b, err := json.Marshal(req.Body)

		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}

		bodyBytes = b
	}

	// one request id for the logical request, replay included
	requestID, ok := reqctx.RequestIDFrom(ctx)

	if !ok {
		requestID = uuid.NewString()
		ctx = reqctx.WithRequestID(ctx, requestID)
	}

	resp, err := c.sendOnce(ctx, req, bodyBytes, requestID)

	if err != nil {
		return nil, err
	}

	if handled, out, herr := c.handleStatus(ctx, req, resp, requestID, csrfFresh, bodyBytes); handled {
		return out, herr
	}

	return resp, nil
}

// handleStatus applies the status-code policy: 401 ends the session,
// a CSRF 403 earns one replay, other non-2xx normalize to APIError.
func (c *Client) handleStatus(ctx context.Context, req Request, resp *Response, requestID string, policy csrfRetryPolicy, bodyBytes []byte) (bool, *Response, error) {
	switch {
	case resp.Status == http.StatusUnauthorized:
		c.prom.AuthFailuresTotal.WithLabelValues("unauthorized").Inc()
		return true, nil, c.endSession(ctx, "unauthorized")

	case resp.Status >= 200 && resp.Status < 300, resp.Status == http.StatusNotModified:
		return false, resp, nil
	}

	apiErr := parseAPIError(resp.Status, resp.Body, requestID)

	if isCSRFFailure(resp.Status, apiErr) && policy.canRetry() && isMutating(req.Method) {
		c.prom.CsrfRetriesTotal.Inc()
		c.log.Debug("csrf rejected, retrying once", "route", req.Route, "request_id", requestID)

		c.csrf.Invalidate()
		c.ensureCSRFToken(ctx)

		retryResp, retryErr := c.sendOnce(ctx, req, bodyBytes, requestID)

		if retryErr != nil {
			// surface the original error, the retry was best-effort
			return true, nil, apiErr
		}

		if handled, out, herr := c.handleStatus(ctx, req, retryResp, requestID, csrfRetried, bodyBytes); handled {
			if herr != nil {
				if _, isAuth := herr.(*AuthRequiredError); isAuth {
					return true, nil, herr
				}
				return true, nil, apiErr
			}
			return true, out, nil
		}

		return true, retryResp, nil
	}

	return true, nil, apiErr
}

// sendOnce performs exactly one network round trip with all standard
// headers attached.
func (c *Client) sendOnce(ctx context.Context, req Request, bodyBytes []byte, requestID string) (*Response, error) {
	fullURL := c.baseURL + req.Path

	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var reader io.Reader

	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, reader)

	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Id", requestID)

	if bodyBytes != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if tok := c.sess.Token(); tok != "" {
		httpReq.Header.Set("Authorization", "Bearer "+tok)
	}

	if isMutating(req.Method) {
		if csrfTok := c.csrf.Token(); csrfTok != "" {
			httpReq.Header.Set("X-CSRF-Token", csrfTok)
		}
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Set(k, v)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()

	var resp *Response

	status, err := c.prom.ObserveRequest(req.Method, req.Route, func() (int, error) {
		httpResp, doErr := c.httpc.Do(httpReq)

		if doErr != nil {
			return 0, doErr
		}
		defer httpResp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))

		if readErr != nil {
			return httpResp.StatusCode, fmt.Errorf("read response body: %w", readErr)
		}

		resp = &Response{
			Status: httpResp.StatusCode,
			Body:   body,
			Header: httpResp.Header,
		}

		return httpResp.StatusCode, nil
	})

	c.log.DebugContext(ctx, "api_request",
		"method", req.Method,
		"route", req.Route,
		"status", status,
		"latency_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	if err != nil {
		return nil, &APIError{
			Status:    status,
			Code:      CodeNetworkError,
			Message:   defaultMessage(CodeNetworkError),
			RequestID: requestID,
		}
	}

	return resp, nil
}

// ensureCSRFToken makes sure the cached CSRF token exists before a
// mutating call. A failed fetch is logged and counted, then the call
// proceeds without the header rather than blocking.
func (c *Client) ensureCSRFToken(ctx context.Context) {
	if c.csrf.Token() != "" {
		return
	}

	if err := c.fetchCSRFToken(ctx); err != nil {
		c.prom.CsrfFetchFailuresTotal.Inc()
		c.log.Warn("csrf token fetch failed, proceeding without header", "err", err)
	}
}

func (c *Client) fetchCSRFToken(ctx context.Context) error {
	resp, err := c.sendOnce(ctx, Request{
		Method: http.MethodGet,
		Route:  csrfTokenPath,
		Path:   csrfTokenPath,
	}, nil, uuid.NewString())

	if err != nil {
		return err
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return fmt.Errorf("csrf endpoint returned status %d", resp.Status)
	}

	tok := FirstString(resp.Body, "csrfToken", "csrf_token", "token")

	if tok == "" {
		return fmt.Errorf("csrf endpoint returned no recognizable token")
	}

	c.csrf.SetToken(tok)

	return nil
}

// endSession clears everything and tells the caller where to sign back
// in. The login route is read before the role flag is wiped.
func (c *Client) endSession(ctx context.Context, reason string) error {
	route := c.sess.LoginRoute()

	if err := c.sess.Clear(); err != nil {
		c.log.WarnContext(ctx, "session clear failed", "err", err)
	}

	c.csrf.Invalidate()

	for _, fn := range c.onSessionClear {
		fn()
	}

	return &AuthRequiredError{Reason: reason, LoginRoute: route}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
