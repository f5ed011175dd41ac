package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/imtihanhq/imtihanctl/internal/observability"
	"github.com/imtihanhq/imtihanctl/internal/session"
	"github.com/imtihanhq/imtihanctl/internal/state"
	"github.com/prometheus/client_golang/prometheus"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func mintTestToken(t *testing.T, exp time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	return tok
}

func newTestClient(t *testing.T, baseURL string, transport http.RoundTripper) (*Client, *session.Session, *state.MemStore) {
	t.Helper()

	store := state.NewMemStore()
	log := observability.NopLogger()
	sess := session.New(store, log)
	prom := observability.NewProm(prometheus.NewRegistry())

	c := New(sess, store, prom, log, Options{
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		Transport: transport,
	})

	return c, sess, store
}

func TestDo_ExpiredTokenShortCircuits(t *testing.T) {
	var calls atomic.Int64

	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("network must not be reached")
	})

	c, sess, store := newTestClient(t, "http://backend.invalid", transport)

	if err := sess.SetAuthenticated(mintTestToken(t, time.Now().Add(-time.Minute)), []byte(`{"id":"u-1"}`), false); err != nil {
		t.Fatalf("SetAuthenticated error: %v", err)
	}

	_, err := c.Do(context.Background(), Request{
		Method:        http.MethodGet,
		Route:         "/users/me",
		Path:          "/users/me",
		Authenticated: true,
	})

	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthRequiredError, got %v", err)
	}
	if authErr.Reason != "expired" {
		t.Fatalf("unexpected reason: %s", authErr.Reason)
	}
	if authErr.LoginRoute != "/login" {
		t.Fatalf("unexpected login route: %s", authErr.LoginRoute)
	}

	if calls.Load() != 0 {
		t.Fatalf("expired token must not reach the network, saw %d calls", calls.Load())
	}

	if _, ok := store.Get(state.KeyAuthToken); ok {
		t.Fatalf("session should be cleared after expiry short-circuit")
	}
}

func TestDo_ExpiredAdminTokenReportsAdminLoginRoute(t *testing.T) {
	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("network must not be reached")
	})

	c, sess, _ := newTestClient(t, "http://backend.invalid", transport)

	if err := sess.SetAuthenticated(mintTestToken(t, time.Now().Add(-time.Minute)), []byte(`{"id":"a-1"}`), true); err != nil {
		t.Fatalf("SetAuthenticated error: %v", err)
	}

	_, err := c.Do(context.Background(), Request{
		Method:        http.MethodGet,
		Route:         "/admin/stats",
		Path:          "/admin/stats",
		Authenticated: true,
		AdminOnly:     true,
	})

	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthRequiredError, got %v", err)
	}
	if authErr.LoginRoute != "/admin/login" {
		t.Fatalf("admin session should point at /admin/login, got %s", authErr.LoginRoute)
	}
}

func TestDo_AdminOnlyRejectsUserSessionLocally(t *testing.T) {
	var calls atomic.Int64

	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("network must not be reached")
	})

	c, sess, _ := newTestClient(t, "http://backend.invalid", transport)

	if err := sess.SetAuthenticated(mintTestToken(t, time.Now().Add(time.Hour)), []byte(`{"id":"u-1"}`), false); err != nil {
		t.Fatalf("SetAuthenticated error: %v", err)
	}

	_, err := c.Do(context.Background(), Request{
		Method:        http.MethodGet,
		Route:         "/admin/stats",
		Path:          "/admin/stats",
		Authenticated: true,
		AdminOnly:     true,
	})

	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}

	if calls.Load() != 0 {
		t.Fatalf("admin-only pre-flight must not reach the network")
	}
}

func TestDo_401ClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"Invalid or expired access token"}}`))
	}))
	defer srv.Close()

	c, sess, store := newTestClient(t, srv.URL, nil)

	if err := sess.SetAuthenticated(mintTestToken(t, time.Now().Add(time.Hour)), []byte(`{"id":"u-1"}`), false); err != nil {
		t.Fatalf("SetAuthenticated error: %v", err)
	}

	_, err := c.Do(context.Background(), Request{
		Method:        http.MethodGet,
		Route:         "/users/me",
		Path:          "/users/me",
		Authenticated: true,
	})

	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthRequiredError, got %v", err)
	}
	if authErr.Reason != "unauthorized" {
		t.Fatalf("unexpected reason: %s", authErr.Reason)
	}

	for _, k := range state.SessionKeys {
		if _, ok := store.Get(k); ok {
			t.Fatalf("key %s should be cleared after 401", k)
		}
	}
	if sess.Token() != "" {
		t.Fatalf("no stale token should survive a 401")
	}
}

func TestDo_CSRFRejectionRetriesExactlyOnce(t *testing.T) {
	var csrfFetches, submits atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/auth/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		csrfFetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"csrfToken": "fresh-token"})
	})
	mux.HandleFunc("POST /api/v1/exams/e-1/submit", func(w http.ResponseWriter, r *http.Request) {
		submits.Add(1)
		w.Header().Set("Content-Type", "application/json")

		if r.Header.Get("X-CSRF-Token") != "fresh-token" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":"EBADCSRFTOKEN","message":"CSRF token missing or invalid"}}`))
			return
		}

		_, _ = w.Write([]byte(`{"data":{"result":{"id":"r-1","score":8}}}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, sess, store := newTestClient(t, srv.URL, nil)

	if err := sess.SetAuthenticated(mintTestToken(t, time.Now().Add(time.Hour)), []byte(`{"id":"u-1"}`), false); err != nil {
		t.Fatalf("SetAuthenticated error: %v", err)
	}
	// a stale cached token forces the first attempt to be rejected
	if err := store.Set(state.KeyCSRFToken, "stale-token"); err != nil {
		t.Fatalf("seed csrf token: %v", err)
	}

	resp, err := c.Do(context.Background(), Request{
		Method:        http.MethodPost,
		Route:         "/exams/:id/submit",
		Path:          "/exams/e-1/submit",
		Body:          map[string]any{"answers": []any{}},
		Authenticated: true,
	})

	if err != nil {
		t.Fatalf("retry should have succeeded, got %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Status)
	}

	if got := csrfFetches.Load(); got != 1 {
		t.Fatalf("expected exactly one replacement csrf fetch, got %d", got)
	}
	if got := submits.Load(); got != 2 {
		t.Fatalf("expected original call plus one retry, got %d submits", got)
	}

	if tok, _ := store.Get(state.KeyCSRFToken); tok != "fresh-token" {
		t.Fatalf("replacement csrf token should be cached, got %q", tok)
	}
}

func TestDo_SecondCSRFFailureSurfacesOriginalError(t *testing.T) {
	var csrfFetches, submits atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/auth/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		csrfFetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"csrfToken": "still-rejected"})
	})
	mux.HandleFunc("POST /api/v1/sections", func(w http.ResponseWriter, r *http.Request) {
		submits.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"EBADCSRFTOKEN","message":"CSRF token missing or invalid"}}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, sess, store := newTestClient(t, srv.URL, nil)

	if err := sess.SetAuthenticated(mintTestToken(t, time.Now().Add(time.Hour)), []byte(`{"id":"a-1"}`), true); err != nil {
		t.Fatalf("SetAuthenticated error: %v", err)
	}
	if err := store.Set(state.KeyCSRFToken, "stale-token"); err != nil {
		t.Fatalf("seed csrf token: %v", err)
	}

	_, err := c.Do(context.Background(), Request{
		Method:        http.MethodPost,
		Route:         "/sections",
		Path:          "/sections",
		Body:          map[string]string{"name": "Algebra"},
		Authenticated: true,
		AdminOnly:     true,
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != CodeCSRFInvalid {
		t.Fatalf("unexpected code: %s", apiErr.Code)
	}

	if got := submits.Load(); got != 2 {
		t.Fatalf("a second csrf failure must not earn another retry, got %d submits", got)
	}
	if got := csrfFetches.Load(); got != 1 {
		t.Fatalf("expected exactly one replacement csrf fetch, got %d", got)
	}
}

func TestDo_CSRFFetchFailureProceedsWithoutHeader(t *testing.T) {
	var sawCSRFHeader atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/auth/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		sawCSRFHeader.Store(r.Header.Get("X-CSRF-Token") != "")
		_, _ = w.Write([]byte(`{"token":"tok-1"}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL, nil)

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Route:  "/auth/login",
		Path:   "/auth/login",
		Body:   map[string]string{"phone": "+213912345678", "password": "secret1"},
	})

	if err != nil {
		t.Fatalf("request should proceed despite csrf fetch failure, got %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Status)
	}
	if sawCSRFHeader.Load() {
		t.Fatalf("no csrf header should be attached when the fetch failed")
	}
}

func TestDo_TransportFailureNormalizesToNetworkError(t *testing.T) {
	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	c, _, _ := newTestClient(t, "http://backend.invalid", transport)

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Route:  "/health",
		Path:   "/health",
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != CodeNetworkError {
		t.Fatalf("unexpected code: %s", apiErr.Code)
	}
	if apiErr.Message == "" {
		t.Fatalf("network errors should carry a displayable message")
	}
}

func TestDo_AttachesStandardHeaders(t *testing.T) {
	var gotAuth, gotReqID, gotAccept string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-Id")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"data":{"user":{"id":"u-1"}}}`))
	}))
	defer srv.Close()

	c, sess, _ := newTestClient(t, srv.URL, nil)

	tok := mintTestToken(t, time.Now().Add(time.Hour))
	if err := sess.SetAuthenticated(tok, []byte(`{"id":"u-1"}`), false); err != nil {
		t.Fatalf("SetAuthenticated error: %v", err)
	}

	if _, err := c.Do(context.Background(), Request{
		Method:        http.MethodGet,
		Route:         "/users/me",
		Path:          "/users/me",
		Authenticated: true,
	}); err != nil {
		t.Fatalf("Do error: %v", err)
	}

	if gotAuth != "Bearer "+tok {
		t.Fatalf("Authorization header mismatch: %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatalf("X-Request-Id should always be set")
	}
	if gotAccept != "application/json" {
		t.Fatalf("Accept header mismatch: %q", gotAccept)
	}
}

func TestDo_ValidationErrorPassesFieldsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"invalid_request","message":"Invalid request body","details":{"fields":[{"field":"phone","rule":"e164","message":"must be a phone number in international format"}]}}}`))
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL, nil)

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Route:  "/auth/register",
		Path:   "/auth/register",
		Body:   map[string]string{"phone": "nope"},
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != CodeValidationError {
		t.Fatalf("unexpected code: %s", apiErr.Code)
	}
	if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != "phone" {
		t.Fatalf("field errors should pass through intact: %+v", apiErr.Fields)
	}
}

func TestDo_UnstructuredErrorBodyFallsBackToStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html>nginx 404</html>`))
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL, nil)

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Route:  "/exams/:id",
		Path:   "/exams/missing",
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != CodeNotFound {
		t.Fatalf("unexpected code: %s", apiErr.Code)
	}
	if apiErr.Message == "" {
		t.Fatalf("fallback message should not be empty")
	}
}
