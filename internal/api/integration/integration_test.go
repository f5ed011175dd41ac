package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/api"
	"github.com/imtihanhq/imtihanctl/internal/cache"
	"github.com/imtihanhq/imtihanctl/internal/client"
	"github.com/imtihanhq/imtihanctl/internal/domain/exam"
	"github.com/imtihanhq/imtihanctl/internal/domain/section"
	"github.com/imtihanhq/imtihanctl/internal/domain/user"
	"github.com/imtihanhq/imtihanctl/internal/observability"
	"github.com/imtihanhq/imtihanctl/internal/session"
	"github.com/imtihanhq/imtihanctl/internal/state"
	"github.com/imtihanhq/imtihanctl/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
)

// countingTransport records every round trip so tests can assert on
// what actually hit the wire.
type countingTransport struct {
	mu       sync.Mutex
	next     http.RoundTripper
	paths    []string
	statuses []int
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)

	t.mu.Lock()
	t.paths = append(t.paths, req.Method+" "+req.URL.Path)

	if resp != nil {
		t.statuses = append(t.statuses, resp.StatusCode)
	}
	t.mu.Unlock()

	return resp, err
}

func (t *countingTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.paths)
}

func (t *countingTransport) lastStatus() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.statuses) == 0 {
		return 0
	}

	return t.statuses[len(t.statuses)-1]
}

type harness struct {
	backend   *testutil.Backend
	transport *countingTransport
	store     *state.FileStore
	sess      *session.Session
	services  *api.Services
}

func newHarness(t *testing.T, cacheTTL time.Duration) *harness {
	t.Helper()

	backend := testutil.NewBackend()
	srv := httptest.NewServer(backend.Engine)
	t.Cleanup(srv.Close)

	store, err := state.NewFileStore(t.TempDir())

	if err != nil {
		t.Fatalf("state store: %v", err)
	}

	log := observability.NopLogger()
	prom := observability.NewProm(prometheus.NewRegistry())
	sess := session.New(store, log)

	ct := &countingTransport{next: http.DefaultTransport}

	c := client.New(sess, store, prom, log, client.Options{
		BaseURL:   srv.URL,
		Timeout:   5 * time.Second,
		Transport: ct,
	})

	qc := cache.New(64, cacheTTL, prom, log)

	return &harness{
		backend:   backend,
		transport: ct,
		store:     store,
		sess:      sess,
		services:  api.NewServices(c, qc),
	}
}

func (h *harness) login(t *testing.T) user.User {
	t.Helper()

	u, err := h.services.Auth.Login(context.Background(), user.LoginRequest{
		Phone:    testutil.SeedUserPhone,
		Password: testutil.SeedUserPassword,
	})

	if err != nil {
		t.Fatalf("login: %v", err)
	}

	return u
}

func (h *harness) adminLogin(t *testing.T) {
	t.Helper()

	_, err := h.services.Auth.AdminLogin(context.Background(), user.AdminLoginRequest{
		Email:    testutil.SeedAdminEmail,
		Password: testutil.SeedAdminPass,
	})

	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
}

func TestLoginThenFetchProfile(t *testing.T) {
	h := newHarness(t, time.Minute)

	u := h.login(t)

	if u.Phone != testutil.SeedUserPhone {
		t.Fatalf("logged-in user phone = %q", u.Phone)
	}
	if h.sess.Token() == "" {
		t.Fatal("session has no token after login")
	}
	if h.sess.IsAdmin() {
		t.Fatal("user login must not set the admin flag")
	}

	me, err := h.services.Users.Me(context.Background())

	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != u.ID {
		t.Fatalf("me returned %q, logged in as %q", me.ID, u.ID)
	}
}

func TestLoginAcrossEnvelopeQuirks(t *testing.T) {
	quirks := []struct {
		name     string
		envelope testutil.Envelope
		field    string
	}{
		{"flat", testutil.EnvelopeFlat, "token"},
		{"data", testutil.EnvelopeData, "accessToken"},
		{"data_data", testutil.EnvelopeDataData, "access_token"},
	}

	for _, q := range quirks {
		t.Run(q.name, func(t *testing.T) {
			h := newHarness(t, time.Minute)
			h.backend.SetEnvelope("login", q.envelope)
			h.backend.SetTokenField(q.field)

			u := h.login(t)

			if u.ID == "" {
				t.Fatal("user not recovered from wrapped response")
			}
			if h.sess.Token() == "" {
				t.Fatal("token not recovered from wrapped response")
			}
		})
	}
}

func TestExpiredTokenNeverReachesNetwork(t *testing.T) {
	h := newHarness(t, time.Minute)

	tokens := testutil.NewTokenManager(testutil.TestJWTSecret, time.Hour)
	expired, err := tokens.GenerateExpired("u-1", "user")

	if err != nil {
		t.Fatalf("mint expired token: %v", err)
	}

	if err := h.sess.SetAuthenticated(expired, []byte(`{"id":"u-1"}`), false); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	_, err = h.services.Users.Me(context.Background())

	var authErr *client.AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthRequiredError, got %v", err)
	}
	if authErr.LoginRoute != "/login" {
		t.Fatalf("login route = %q", authErr.LoginRoute)
	}
	if h.transport.calls() != 0 {
		t.Fatalf("expired token caused %d network calls", h.transport.calls())
	}
	if h.sess.Token() != "" {
		t.Fatal("session not cleared after expiry")
	}
}

func TestExpiredAdminRoutesToAdminLogin(t *testing.T) {
	h := newHarness(t, time.Minute)

	tokens := testutil.NewTokenManager(testutil.TestJWTSecret, time.Hour)
	expired, err := tokens.GenerateExpired("a-1", "admin")

	if err != nil {
		t.Fatalf("mint expired token: %v", err)
	}

	if err := h.sess.SetAuthenticated(expired, []byte(`{"id":"a-1"}`), true); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	_, err = h.services.Admin.Stats(context.Background())

	var authErr *client.AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthRequiredError, got %v", err)
	}
	if authErr.LoginRoute != "/admin/login" {
		t.Fatalf("login route = %q", authErr.LoginRoute)
	}
}

func TestRejectedTokenEndsSession(t *testing.T) {
	h := newHarness(t, time.Minute)

	// valid shape and future exp, but signed with the wrong secret,
	// so only the backend can reject it
	forged, err := testutil.NewTokenManager("some-other-secret", time.Hour).Generate("u-1", "user")

	if err != nil {
		t.Fatalf("mint forged token: %v", err)
	}

	if err := h.sess.SetAuthenticated(forged, []byte(`{"id":"u-1"}`), false); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	_, err = h.services.Users.Me(context.Background())

	var authErr *client.AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthRequiredError, got %v", err)
	}
	if h.transport.calls() == 0 {
		t.Fatal("rejection should have come from the backend")
	}
	if h.sess.Token() != "" {
		t.Fatal("session not cleared after 401")
	}
}

func TestCSRFRotationRecoveredWithOneRetry(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.login(t)

	// the login call cached a CSRF token; rotating server state makes
	// the cached one stale
	h.backend.RotateCSRF()

	name := "Renamed"
	u, err := h.services.Users.UpdateMe(context.Background(), user.UpdateProfileRequest{Name: &name})

	if err != nil {
		t.Fatalf("update through stale csrf token: %v", err)
	}
	if u.Name != "Renamed" {
		t.Fatalf("profile name = %q", u.Name)
	}
	if h.transport.lastStatus() != http.StatusOK {
		t.Fatalf("final status = %d", h.transport.lastStatus())
	}
}

func TestAdminOnlyRejectedLocallyForUserSession(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.login(t)

	before := h.transport.calls()

	_, err := h.services.Admin.Stats(context.Background())

	var forbidden *client.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("want ForbiddenError, got %v", err)
	}
	if h.transport.calls() != before {
		t.Fatal("local role check must not hit the network")
	}
	if h.sess.Token() == "" {
		t.Fatal("forbidden must not clear the session")
	}
}

func TestAdminLoginAndStats(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.adminLogin(t)

	if !h.sess.IsAdmin() {
		t.Fatal("admin login must set the admin flag")
	}

	st, err := h.services.Admin.Stats(context.Background())

	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalExams != 1 || st.TotalSections != 2 {
		t.Fatalf("unexpected fixture stats: %+v", st)
	}
}

func TestValidationFailsBeforeNetwork(t *testing.T) {
	h := newHarness(t, time.Minute)

	_, err := h.services.Auth.Login(context.Background(), user.LoginRequest{
		Phone:    "not-a-phone",
		Password: "x",
	})

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Code != client.CodeValidationError {
		t.Fatalf("code = %q", apiErr.Code)
	}
	if len(apiErr.Fields) != 2 {
		t.Fatalf("fields = %+v", apiErr.Fields)
	}
	if h.transport.calls() != 0 {
		t.Fatal("local validation must not hit the network")
	}
}

func TestBareArrayExamListTolerated(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.backend.SetEnvelope("exams", testutil.EnvelopeBare)
	h.login(t)

	exams, _, err := h.services.Exams.List(context.Background(), exam.ListFilter{})

	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(exams) != 1 || exams[0].ID != "e-1" {
		t.Fatalf("exams = %+v", exams)
	}
}

func TestSectionListRevalidatesWithETag(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond)
	h.login(t)

	first, err := h.services.Sections.List(context.Background())

	if err != nil {
		t.Fatalf("first list: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	second, err := h.services.Sections.List(context.Background())

	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if h.transport.lastStatus() != http.StatusNotModified {
		t.Fatalf("revalidation status = %d", h.transport.lastStatus())
	}
	if len(second) != len(first) {
		t.Fatalf("list changed across revalidation: %d vs %d", len(first), len(second))
	}
}

func TestSubmitExamAndSeeResult(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.login(t)

	e, err := h.services.Exams.Get(context.Background(), "e-1")

	if err != nil {
		t.Fatalf("get exam: %v", err)
	}
	if len(e.Questions) != 2 {
		t.Fatalf("exam detail has %d questions", len(e.Questions))
	}

	res, err := h.services.Exams.Submit(context.Background(), "e-1", exam.Submission{
		Answers: []exam.Answer{
			{QuestionID: "q-1", OptionIDs: []string{"o-2"}},
			{QuestionID: "q-2", OptionIDs: []string{"o-3", "o-5"}},
		},
	})

	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 10 || !res.Passed {
		t.Fatalf("result = %+v", res)
	}

	results, _, err := h.services.Users.Results(context.Background(), 20, "")

	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 || results[0].ExamID != "e-1" {
		t.Fatalf("results = %+v", results)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.login(t)

	if err := h.services.Auth.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if h.sess.Token() != "" {
		t.Fatal("token survives logout")
	}

	_, err := h.services.Users.Me(context.Background())

	var authErr *client.AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthRequiredError after logout, got %v", err)
	}
}

func TestRegisterLogsStraightIn(t *testing.T) {
	h := newHarness(t, time.Minute)

	u, err := h.services.Auth.Register(context.Background(), user.RegisterRequest{
		Name:     "Yasmine",
		Phone:    "+213555000111",
		Password: "secret2",
		Level:    "secondary",
	})

	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Name != "Yasmine" {
		t.Fatalf("registered user = %+v", u)
	}
	if h.sess.Token() == "" {
		t.Fatal("register did not establish a session")
	}
}

func TestRefreshReplacesToken(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.login(t)

	old := h.sess.Token()

	if err := h.services.Auth.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if h.sess.Token() == "" || h.sess.Token() == old {
		t.Fatal("refresh did not replace the token")
	}
}

func TestAdminManagesSectionsAndExams(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.adminLogin(t)

	ctx := context.Background()

	created, err := h.services.Admin.CreateSection(ctx, section.CreateSectionRequest{
		Name:        "Chemistry",
		Description: "Organic basics",
	})

	if err != nil {
		t.Fatalf("create section: %v", err)
	}

	e, err := h.services.Admin.CreateExam(ctx, exam.CreateExamRequest{
		Title:           "Chem Quiz",
		SectionID:       created.ID,
		DurationMinutes: 15,
		Questions: []exam.CreateQuestionRequest{
			{Text: "Water is?", Points: 5, Options: []string{"H2O", "CO2"}, Correct: []int{0}},
		},
	})

	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	if e.TotalPoints != 5 || e.QuestionCount != 1 {
		t.Fatalf("created exam = %+v", e)
	}

	if err := h.services.Admin.DeleteExam(ctx, e.ID); err != nil {
		t.Fatalf("delete exam: %v", err)
	}
	if err := h.services.Admin.DeleteSection(ctx, created.ID); err != nil {
		t.Fatalf("delete section: %v", err)
	}
}

func TestPing(t *testing.T) {
	h := newHarness(t, time.Minute)

	if err := h.services.Health.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
