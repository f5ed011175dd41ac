package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/imtihanhq/imtihanctl/internal/domain/exam"
	"github.com/imtihanhq/imtihanctl/internal/domain/result"
	"github.com/imtihanhq/imtihanctl/internal/domain/section"
	"github.com/imtihanhq/imtihanctl/internal/domain/stats"
	"github.com/imtihanhq/imtihanctl/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
)

// Envelope picks how a route wraps its payload. The real backend is
// not consistent, so tests can dial in each quirk per response name.
type Envelope int

const (
	EnvelopeFlat Envelope = iota // {"field": ...}
	EnvelopeData                 // {"success":true,"data":{"field": ...}}
	EnvelopeDataData             // {"data":{"data":{"field": ...}}}
	EnvelopeBare                 // the payload itself, no wrapper
)

const (
	SeedUserPhone    = "+213912345678"
	SeedUserPassword = "secret1"
	SeedAdminEmail   = "admin@imtihan.example"
	SeedAdminPass    = "admin-secret-1"
	TestJWTSecret    = "test-secret-key"
)

type seedAccount struct {
	user         user.User
	passwordHash string
}

// Backend is an in-process fake of the exam service, close enough in
// envelope quirks and failure modes to exercise the whole client.
type Backend struct {
	Engine *gin.Engine
	Tokens *TokenManager

	mu sync.Mutex

	// tokenField is the alias login responses use for the token.
	tokenFieldName string

	envelopes  map[string]Envelope
	csrfIssued map[string]bool

	users     map[string]*seedAccount // keyed by phone
	admin     seedAccount
	sections  []section.Section
	exams     []exam.Exam
	answerKey map[string]map[string]map[string]bool // examID -> questionID -> correct options
	results   []result.Result
}

func NewBackend() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		Tokens:         NewTokenManager(TestJWTSecret, time.Hour),
		tokenFieldName: "token",
		envelopes:  make(map[string]Envelope),
		csrfIssued: make(map[string]bool),
		users:      make(map[string]*seedAccount),
		answerKey:  make(map[string]map[string]map[string]bool),
	}

	b.seed()
	b.Engine = b.buildRouter()

	return b
}

func (b *Backend) seed() {
	userHash, _ := bcrypt.GenerateFromPassword([]byte(SeedUserPassword), bcrypt.MinCost)
	adminHash, _ := bcrypt.GenerateFromPassword([]byte(SeedAdminPass), bcrypt.MinCost)

	b.users[SeedUserPhone] = &seedAccount{
		user: user.User{
			ID:        "u-1",
			Name:      "Amine",
			Phone:     SeedUserPhone,
			Level:     "secondary",
			Role:      "user",
			CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		},
		passwordHash: string(userHash),
	}

	b.admin = seedAccount{
		user: user.User{
			ID:        "a-1",
			Name:      "Site Admin",
			Email:     SeedAdminEmail,
			Role:      "admin",
			CreatedAt: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		},
		passwordHash: string(adminHash),
	}

	b.sections = []section.Section{
		{ID: "s-1", Name: "Mathematics", Description: "Algebra and geometry", ExamCount: 1},
		{ID: "s-2", Name: "Physics", ExamCount: 0},
	}

	b.exams = []exam.Exam{
		{
			ID:              "e-1",
			Title:           "Algebra I",
			SectionID:       "s-1",
			SectionName:     "Mathematics",
			DurationMinutes: 30,
			TotalPoints:     10,
			QuestionCount:   2,
			CreatedAt:       time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
			Questions: []exam.Question{
				{
					ID: "q-1", Text: "2+2?", Points: 5, Multiple: false,
					Options: []exam.Option{{ID: "o-1", Text: "3"}, {ID: "o-2", Text: "4"}},
				},
				{
					ID: "q-2", Text: "Pick the even numbers", Points: 5, Multiple: true,
					Options: []exam.Option{{ID: "o-3", Text: "2"}, {ID: "o-4", Text: "7"}, {ID: "o-5", Text: "8"}},
				},
			},
		},
	}

	b.answerKey["e-1"] = map[string]map[string]bool{
		"q-1": {"o-2": true},
		"q-2": {"o-3": true, "o-5": true},
	}
}

// SetEnvelope dials in the wrapping quirk for one response name, e.g.
// "exams" or "login".
func (b *Backend) SetEnvelope(name string, env Envelope) {
	b.mu.Lock()
	b.envelopes[name] = env
	b.mu.Unlock()
}

// SetTokenField picks the alias login responses use for the token,
// e.g. "accessToken" or "access_token".
func (b *Backend) SetTokenField(name string) {
	b.mu.Lock()
	b.tokenFieldName = name
	b.mu.Unlock()
}

// RotateCSRF invalidates every issued CSRF token, forcing the next
// mutating request into the 403-and-retry path.
func (b *Backend) RotateCSRF() {
	b.mu.Lock()
	b.csrfIssued = make(map[string]bool)
	b.mu.Unlock()
}

func (b *Backend) envelope(name string) Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.envelopes[name]
}

// respond wraps payload per the configured envelope. extra fields (a
// token, a cursor) land next to the named field.
func (b *Backend) respond(ctx *gin.Context, status int, name, field string, payload any, extra gin.H) {
	inner := gin.H{field: payload}

	for k, v := range extra {
		inner[k] = v
	}

	switch b.envelope(name) {
	case EnvelopeBare:
		ctx.JSON(status, payload)
	case EnvelopeData:
		ctx.JSON(status, gin.H{"success": true, "data": inner})
	case EnvelopeDataData:
		ctx.JSON(status, gin.H{"data": gin.H{"data": inner}})
	default:
		ctx.JSON(status, inner)
	}
}

func respondError(ctx *gin.Context, status int, code, message string) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondJSONWithETag hashes the body so clients can revalidate with
// If-None-Match and get a 304 back.
func respondJSONWithETag(ctx *gin.Context, status int, body any) {
	bts, err := json.Marshal(body)
	if err != nil {
		ctx.JSON(status, body)
		return
	}

	sum := sha256.Sum256(bts)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	ctx.Header("ETag", etag)

	if match := strings.TrimSpace(ctx.GetHeader("If-None-Match")); match != "" {
		if match == "*" || strings.Contains(match, etag) {
			ctx.Status(http.StatusNotModified)
			return
		}
	}

	ctx.Data(status, "application/json; charset=utf-8", bts)
}

func (b *Backend) buildRouter() *gin.Engine {
	r := gin.New()

	v1 := r.Group("/api/v1")

	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1.GET("/auth/csrf-token", b.issueCSRF)

	auth := v1.Group("/")
	auth.Use(b.requireCSRF())

	auth.POST("/auth/login", b.login)
	auth.POST("/auth/register", b.register)
	auth.POST("/auth/admin/login", b.adminLogin)
	auth.POST("/auth/logout", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"success": true})
	})

	private := v1.Group("/")
	private.Use(b.requireCSRF(), b.requireAuth())

	private.POST("/auth/refresh-token", b.refresh)
	private.GET("/users/me", b.me)
	private.PUT("/users/me", b.updateMe)
	private.GET("/users/me/results", b.myResults)
	private.GET("/exams", b.listExams)
	private.GET("/exams/:id", b.getExam)
	private.POST("/exams/:id/submit", b.submitExam)
	private.GET("/sections", b.listSections)
	private.GET("/sections/:id", b.getSection)

	admin := v1.Group("/admin")
	admin.Use(b.requireCSRF(), b.requireAuth(), b.requireRole("admin"))

	admin.GET("/stats", b.adminStats)
	admin.GET("/users", b.adminListUsers)
	admin.POST("/users", b.adminCreateUser)
	admin.PUT("/users/:id", b.adminUpdateUser)
	admin.DELETE("/users/:id", b.adminDeleteUser)
	admin.POST("/exams", b.adminCreateExam)
	admin.PUT("/exams/:id", b.adminUpdateExam)
	admin.DELETE("/exams/:id", b.adminDeleteExam)
	admin.POST("/sections", b.adminCreateSection)
	admin.PUT("/sections/:id", b.adminUpdateSection)
	admin.DELETE("/sections/:id", b.adminDeleteSection)

	return r
}

// middleware

func (b *Backend) requireCSRF() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		switch ctx.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			ctx.Next()
			return
		}

		tok := ctx.GetHeader("X-CSRF-Token")

		b.mu.Lock()
		ok := tok != "" && b.csrfIssued[tok]
		b.mu.Unlock()

		if !ok {
			respondError(ctx, http.StatusForbidden, "EBADCSRFTOKEN", "CSRF token missing or invalid")
			return
		}

		ctx.Next()
	}
}

func (b *Backend) requireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")

		if !strings.HasPrefix(header, "Bearer ") {
			respondError(ctx, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		claims, err := b.Tokens.Verify(raw)

		if err != nil {
			respondError(ctx, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		}

		ctx.Set("auth.userID", claims.UserID)
		ctx.Set("auth.role", claims.Role)
		ctx.Next()
	}
}

func (b *Backend) requireRole(required string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role, _ := ctx.Get("auth.role")

		if role != required {
			respondError(ctx, http.StatusForbidden, "forbidden", "Admin role required")
			return
		}

		ctx.Next()
	}
}

// handlers

func (b *Backend) issueCSRF(ctx *gin.Context) {
	tok := uuid.NewString()

	b.mu.Lock()
	b.csrfIssued[tok] = true
	b.mu.Unlock()

	b.respond(ctx, http.StatusOK, "csrf", "csrfToken", tok, nil)
}

func (b *Backend) login(ctx *gin.Context) {
	var req struct {
		Phone    string `json:"phone" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	b.mu.Lock()
	account, ok := b.users[req.Phone]
	b.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword([]byte(account.passwordHash), []byte(req.Password)) != nil {
		respondError(ctx, http.StatusUnauthorized, "invalid_credentials", "Phone or password is incorrect.")
		return
	}

	tok, err := b.Tokens.Generate(account.user.ID, account.user.Role)

	if err != nil {
		respondError(ctx, http.StatusInternalServerError, "internal_error", "Could not generate access token")
		return
	}

	b.respond(ctx, http.StatusOK, "login", "user", account.user, gin.H{b.tokenField(): tok})
}

func (b *Backend) register(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Phone    string `json:"phone" binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
		Level    string `json:"level"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	b.mu.Lock()

	if _, exists := b.users[req.Phone]; exists {
		b.mu.Unlock()
		respondError(ctx, http.StatusConflict, "phone_taken", "Phone number already registered.")
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)

	u := user.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Phone:     req.Phone,
		Level:     req.Level,
		Role:      "user",
		CreatedAt: time.Now().UTC(),
	}

	b.users[req.Phone] = &seedAccount{user: u, passwordHash: string(hash)}
	b.mu.Unlock()

	tok, err := b.Tokens.Generate(u.ID, u.Role)

	if err != nil {
		respondError(ctx, http.StatusInternalServerError, "internal_error", "Could not generate access token")
		return
	}

	b.respond(ctx, http.StatusCreated, "login", "user", u, gin.H{b.tokenField(): tok})
}

func (b *Backend) adminLogin(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Email != b.admin.user.Email ||
		bcrypt.CompareHashAndPassword([]byte(b.admin.passwordHash), []byte(req.Password)) != nil {
		respondError(ctx, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	tok, err := b.Tokens.Generate(b.admin.user.ID, "admin")

	if err != nil {
		respondError(ctx, http.StatusInternalServerError, "internal_error", "Could not generate access token")
		return
	}

	b.respond(ctx, http.StatusOK, "adminLogin", "admin", b.admin.user, gin.H{b.tokenField(): tok})
}

func (b *Backend) refresh(ctx *gin.Context) {
	userID, _ := ctx.Get("auth.userID")
	role, _ := ctx.Get("auth.role")

	tok, err := b.Tokens.Generate(userID.(string), role.(string))

	if err != nil {
		respondError(ctx, http.StatusInternalServerError, "internal_error", "Could not generate access token")
		return
	}

	b.respond(ctx, http.StatusOK, "refresh", b.tokenField(), tok, nil)
}

func (b *Backend) tokenField() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tokenFieldName
}

func (b *Backend) currentUser(ctx *gin.Context) (*seedAccount, bool) {
	userID, _ := ctx.Get("auth.userID")

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, account := range b.users {
		if account.user.ID == userID {
			return account, true
		}
	}

	return nil, false
}

func (b *Backend) me(ctx *gin.Context) {
	account, ok := b.currentUser(ctx)

	if !ok {
		respondError(ctx, http.StatusNotFound, "not_found", "User not found")
		return
	}

	b.respond(ctx, http.StatusOK, "me", "user", account.user, nil)
}

func (b *Backend) updateMe(ctx *gin.Context) {
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Level *string `json:"level"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	account, ok := b.currentUser(ctx)

	if !ok {
		respondError(ctx, http.StatusNotFound, "not_found", "User not found")
		return
	}

	b.mu.Lock()
	if req.Name != nil {
		account.user.Name = *req.Name
	}
	if req.Email != nil {
		account.user.Email = *req.Email
	}
	if req.Level != nil {
		account.user.Level = *req.Level
	}
	updated := account.user
	b.mu.Unlock()

	b.respond(ctx, http.StatusOK, "me", "user", updated, nil)
}

func (b *Backend) myResults(ctx *gin.Context) {
	userID, _ := ctx.Get("auth.userID")

	b.mu.Lock()
	var mine []result.Result
	for _, r := range b.results {
		if strings.HasPrefix(r.ID, userID.(string)+":") {
			mine = append(mine, r)
		}
	}
	b.mu.Unlock()

	if mine == nil {
		mine = []result.Result{}
	}

	b.respond(ctx, http.StatusOK, "results", "results", mine, nil)
}

func (b *Backend) listExams(ctx *gin.Context) {
	b.mu.Lock()
	exams := make([]exam.Exam, 0, len(b.exams))
	sectionID := ctx.Query("sectionId")

	for _, e := range b.exams {
		if sectionID != "" && e.SectionID != sectionID {
			continue
		}
		// list responses omit question bodies
		summary := e
		summary.Questions = nil
		exams = append(exams, summary)
	}
	b.mu.Unlock()

	if b.envelope("exams") == EnvelopeBare {
		respondJSONWithETag(ctx, http.StatusOK, exams)
		return
	}

	b.respondCachedList(ctx, "exams", "exams", exams)
}

// respondCachedList is respond plus an ETag over the wrapped body.
func (b *Backend) respondCachedList(ctx *gin.Context, name, field string, payload any) {
	inner := gin.H{field: payload}

	var body any = inner

	switch b.envelope(name) {
	case EnvelopeData:
		body = gin.H{"success": true, "data": inner}
	case EnvelopeDataData:
		body = gin.H{"data": gin.H{"data": inner}}
	}

	respondJSONWithETag(ctx, http.StatusOK, body)
}

func (b *Backend) getExam(ctx *gin.Context) {
	id := ctx.Param("id")

	b.mu.Lock()
	for _, e := range b.exams {
		if e.ID == id {
			b.mu.Unlock()
			b.respond(ctx, http.StatusOK, "exam", "exam", e, nil)
			return
		}
	}
	b.mu.Unlock()

	respondError(ctx, http.StatusNotFound, "not_found", "Exam not found")
}

func (b *Backend) submitExam(ctx *gin.Context) {
	id := ctx.Param("id")

	var sub exam.Submission

	if err := ctx.ShouldBindJSON(&sub); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	b.mu.Lock()

	var target *exam.Exam
	for i := range b.exams {
		if b.exams[i].ID == id {
			target = &b.exams[i]
			break
		}
	}

	if target == nil {
		b.mu.Unlock()
		respondError(ctx, http.StatusNotFound, "not_found", "Exam not found")
		return
	}

	key := b.answerKey[id]
	score := 0

	for _, ans := range sub.Answers {
		correct, ok := key[ans.QuestionID]
		if !ok {
			continue
		}

		if len(ans.OptionIDs) != len(correct) {
			continue
		}

		match := true
		for _, optID := range ans.OptionIDs {
			if !correct[optID] {
				match = false
				break
			}
		}

		if match {
			for _, q := range target.Questions {
				if q.ID == ans.QuestionID {
					score += q.Points
				}
			}
		}
	}

	userID, _ := ctx.Get("auth.userID")

	r := result.Result{
		ID:          userID.(string) + ":" + uuid.NewString(),
		ExamID:      target.ID,
		ExamTitle:   target.Title,
		Score:       score,
		TotalPoints: target.TotalPoints,
		Percent:     float64(score) / float64(target.TotalPoints) * 100,
		Passed:      score*2 >= target.TotalPoints,
		SubmittedAt: time.Now().UTC(),
	}

	b.results = append(b.results, r)
	b.mu.Unlock()

	b.respond(ctx, http.StatusCreated, "result", "result", r, nil)
}

func (b *Backend) listSections(ctx *gin.Context) {
	b.mu.Lock()
	sections := make([]section.Section, len(b.sections))
	copy(sections, b.sections)
	b.mu.Unlock()

	if b.envelope("sections") == EnvelopeBare {
		respondJSONWithETag(ctx, http.StatusOK, sections)
		return
	}

	b.respondCachedList(ctx, "sections", "sections", sections)
}

func (b *Backend) getSection(ctx *gin.Context) {
	id := ctx.Param("id")

	b.mu.Lock()
	for _, s := range b.sections {
		if s.ID == id {
			b.mu.Unlock()
			b.respond(ctx, http.StatusOK, "section", "section", s, nil)
			return
		}
	}
	b.mu.Unlock()

	respondError(ctx, http.StatusNotFound, "not_found", "Section not found")
}

// admin handlers

func (b *Backend) adminStats(ctx *gin.Context) {
	b.mu.Lock()

	totalScore := 0
	for _, r := range b.results {
		totalScore += r.Score
	}

	avg := 0.0
	if len(b.results) > 0 {
		avg = float64(totalScore) / float64(len(b.results))
	}

	st := stats.AdminStats{
		TotalUsers:       len(b.users),
		TotalExams:       len(b.exams),
		TotalSections:    len(b.sections),
		TotalSubmissions: len(b.results),
		AverageScore:     avg,
	}
	b.mu.Unlock()

	b.respond(ctx, http.StatusOK, "stats", "stats", st, nil)
}

func (b *Backend) adminListUsers(ctx *gin.Context) {
	b.mu.Lock()
	users := make([]user.User, 0, len(b.users))
	for _, account := range b.users {
		users = append(users, account.user)
	}
	b.mu.Unlock()

	b.respond(ctx, http.StatusOK, "users", "users", users, nil)
}

func (b *Backend) adminCreateUser(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Phone    string `json:"phone" binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
		Level    string `json:"level"`
		Role     string `json:"role"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	role := req.Role
	if role == "" {
		role = "user"
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)

	u := user.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Phone:     req.Phone,
		Level:     req.Level,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	b.mu.Lock()
	b.users[req.Phone] = &seedAccount{user: u, passwordHash: string(hash)}
	b.mu.Unlock()

	b.respond(ctx, http.StatusCreated, "adminUser", "user", u, nil)
}

func (b *Backend) adminUpdateUser(ctx *gin.Context) {
	id := ctx.Param("id")

	var req struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
		Level *string `json:"level"`
		Role  *string `json:"role"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	b.mu.Lock()
	for _, account := range b.users {
		if account.user.ID != id {
			continue
		}

		if req.Name != nil {
			account.user.Name = *req.Name
		}
		if req.Level != nil {
			account.user.Level = *req.Level
		}
		if req.Role != nil {
			account.user.Role = *req.Role
		}
		updated := account.user
		b.mu.Unlock()

		b.respond(ctx, http.StatusOK, "adminUser", "user", updated, nil)
		return
	}
	b.mu.Unlock()

	respondError(ctx, http.StatusNotFound, "not_found", "User not found")
}

func (b *Backend) adminDeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	b.mu.Lock()
	for phone, account := range b.users {
		if account.user.ID == id {
			delete(b.users, phone)
			b.mu.Unlock()
			ctx.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}
	b.mu.Unlock()

	respondError(ctx, http.StatusNotFound, "not_found", "User not found")
}

func (b *Backend) adminCreateExam(ctx *gin.Context) {
	var req exam.CreateExamRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	e := exam.Exam{
		ID:              uuid.NewString(),
		Title:           req.Title,
		SectionID:       req.SectionID,
		DurationMinutes: req.DurationMinutes,
		CreatedAt:       time.Now().UTC(),
	}

	key := make(map[string]map[string]bool)

	for _, qReq := range req.Questions {
		q := exam.Question{
			ID:       uuid.NewString(),
			Text:     qReq.Text,
			Points:   qReq.Points,
			Multiple: qReq.Multiple,
		}

		correct := make(map[string]bool)

		for i, optText := range qReq.Options {
			opt := exam.Option{ID: uuid.NewString(), Text: optText}
			q.Options = append(q.Options, opt)

			for _, c := range qReq.Correct {
				if c == i {
					correct[opt.ID] = true
				}
			}
		}

		key[q.ID] = correct
		e.Questions = append(e.Questions, q)
		e.TotalPoints += q.Points
	}

	e.QuestionCount = len(e.Questions)

	b.mu.Lock()
	b.exams = append(b.exams, e)
	b.answerKey[e.ID] = key
	b.mu.Unlock()

	b.respond(ctx, http.StatusCreated, "exam", "exam", e, nil)
}

func (b *Backend) adminUpdateExam(ctx *gin.Context) {
	id := ctx.Param("id")

	var req exam.UpdateExamRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	b.mu.Lock()
	for i := range b.exams {
		if b.exams[i].ID != id {
			continue
		}

		if req.Title != nil {
			b.exams[i].Title = *req.Title
		}
		if req.SectionID != nil {
			b.exams[i].SectionID = *req.SectionID
		}
		if req.DurationMinutes != nil {
			b.exams[i].DurationMinutes = *req.DurationMinutes
		}
		updated := b.exams[i]
		b.mu.Unlock()

		b.respond(ctx, http.StatusOK, "exam", "exam", updated, nil)
		return
	}
	b.mu.Unlock()

	respondError(ctx, http.StatusNotFound, "not_found", "Exam not found")
}

func (b *Backend) adminDeleteExam(ctx *gin.Context) {
	id := ctx.Param("id")

	b.mu.Lock()
	for i := range b.exams {
		if b.exams[i].ID == id {
			b.exams = append(b.exams[:i], b.exams[i+1:]...)
			delete(b.answerKey, id)
			b.mu.Unlock()
			ctx.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}
	b.mu.Unlock()

	respondError(ctx, http.StatusNotFound, "not_found", "Exam not found")
}

func (b *Backend) adminCreateSection(ctx *gin.Context) {
	var req section.CreateSectionRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	s := section.Section{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
	}

	b.mu.Lock()
	b.sections = append(b.sections, s)
	b.mu.Unlock()

	b.respond(ctx, http.StatusCreated, "section", "section", s, nil)
}

func (b *Backend) adminUpdateSection(ctx *gin.Context) {
	id := ctx.Param("id")

	var req section.UpdateSectionRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	b.mu.Lock()
	for i := range b.sections {
		if b.sections[i].ID != id {
			continue
		}

		if req.Name != nil {
			b.sections[i].Name = *req.Name
		}
		if req.Description != nil {
			b.sections[i].Description = *req.Description
		}
		updated := b.sections[i]
		b.mu.Unlock()

		b.respond(ctx, http.StatusOK, "section", "section", updated, nil)
		return
	}
	b.mu.Unlock()

	respondError(ctx, http.StatusNotFound, "not_found", "Section not found")
}

func (b *Backend) adminDeleteSection(ctx *gin.Context) {
	id := ctx.Param("id")

	b.mu.Lock()
	for i := range b.sections {
		if b.sections[i].ID == id {
			b.sections = append(b.sections[:i], b.sections[i+1:]...)
			b.mu.Unlock()
			ctx.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}
	b.mu.Unlock()

	respondError(ctx, http.StatusNotFound, "not_found", "Section not found")
}
