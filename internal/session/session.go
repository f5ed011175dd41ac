package session

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/state"
	"github.com/tidwall/sjson"
)

type State string

const (
	StateAnonymous State = "anonymous"
	StateUser      State = "user"
	StateAdmin     State = "admin"
)

// Session owns the token lifecycle over an injected store. No package
// globals; the client and the CLI share one instance.
type Session struct {
	store state.Store
	log   *slog.Logger

	// clock hook for tests
	now func() time.Time
}

func New(store state.Store, log *slog.Logger) *Session {
	return &Session{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Token returns the stored token: primary slot first, then the token
// field embedded in the cached profile object as a fallback.
func (s *Session) Token() string {
	if tok, ok := s.store.Get(state.KeyAuthToken); ok {
		return tok
	}

	if raw, ok := s.store.Get(state.KeyProfile); ok {
		var profile struct {
			Token string `json:"token"`
		}

		if err := json.Unmarshal([]byte(raw), &profile); err == nil && profile.Token != "" {
			return profile.Token
		}
	}

	return ""
}

// SetToken persists the token, derives its exp claim when possible and
// mirrors the token into the cached profile so both slots agree.
func (s *Session) SetToken(tok string) error {
	if err := s.store.Set(state.KeyAuthToken, tok); err != nil {
		return err
	}

	exp, err := DecodeExpiry(tok)

	if err != nil {
		// unknown expiry is fine, IsTokenExpired treats it optimistically
		s.log.Debug("token expiry not decodable", "err", err)
		_ = s.store.Delete(state.KeyTokenExpires)
	} else {
		if err := s.store.Set(state.KeyTokenExpires, strconv.FormatInt(exp.Unix(), 10)); err != nil {
			return err
		}
	}

	if raw, ok := s.store.Get(state.KeyProfile); ok {
		if updated, err := sjson.Set(raw, "token", tok); err == nil {
			return s.store.Set(state.KeyProfile, updated)
		}
	}

	return nil
}

// SetAuthenticated is the full login transition: token, role flag and
// cached profile in one go.
func (s *Session) SetAuthenticated(tok string, profileJSON []byte, isAdmin bool) error {
	flag := "0"

	if isAdmin {
		flag = "1"
	}

	if err := s.store.Set(state.KeyIsAdmin, flag); err != nil {
		return err
	}

	if len(profileJSON) > 0 {
		if err := s.store.Set(state.KeyProfile, string(profileJSON)); err != nil {
			return err
		}
	}

	return s.SetToken(tok)
}

// IsTokenExpired reports whether the session can still authenticate a
// request. No token counts as expired; a token with an unknown expiry
// is optimistically treated as valid.
func (s *Session) IsTokenExpired() bool {
	tok := s.Token()

	if tok == "" {
		return true
	}

	if raw, ok := s.store.Get(state.KeyTokenExpires); ok {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			return !s.now().Before(time.Unix(secs, 0))
		}
	}

	// stored expiry missing or garbled, re-derive from the token itself
	exp, err := DecodeExpiry(tok)

	if err != nil {
		return false
	}

	return !s.now().Before(exp)
}

func (s *Session) IsAdmin() bool {
	v, _ := s.store.Get(state.KeyIsAdmin)
	return v == "1"
}

func (s *Session) State() State {
	if s.Token() == "" {
		return StateAnonymous
	}

	if s.IsAdmin() {
		return StateAdmin
	}

	return StateUser
}

// Profile decodes the cached user/admin object into out.
func (s *Session) Profile(out any) bool {
	raw, ok := s.store.Get(state.KeyProfile)

	if !ok {
		return false
	}

	return json.Unmarshal([]byte(raw), out) == nil
}

// Clear removes every session key, CSRF token included.
func (s *Session) Clear() error {
	return s.store.Delete(state.SessionKeys...)
}

// LoginRoute is the web login route matching the stored role flag. It
// rides along on auth errors so the caller can tell the user where to
// sign back in.
func (s *Session) LoginRoute() string {
	if s.IsAdmin() {
		return "/admin/login"
	}

	return "/login"
}
