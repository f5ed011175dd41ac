package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/imtihanhq/imtihanctl/internal/cache"
	"github.com/imtihanhq/imtihanctl/internal/client"
	"github.com/imtihanhq/imtihanctl/internal/domain/user"
)

// tokenAliases covers every name the backend has been seen using for
// the access token.
var tokenAliases = []string{"token", "accessToken", "access_token"}

type AuthService struct {
	client *client.Client
	cache  *cache.Cache
}

// Login signs a user in by phone and password and transitions the
// session to the user role.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (user.User, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return user.User{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodPost,
		Route:  "/auth/login",
		Path:   "/auth/login",
		Body:   req,
	})

	if err != nil {
		return user.User{}, err
	}

	return s.adoptUserSession(resp.Body)
}

// Register creates an account. The backend logs the new user straight
// in, so the session transitions the same way Login does.
func (s *AuthService) Register(ctx context.Context, req user.RegisterRequest) (user.User, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return user.User{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodPost,
		Route:  "/auth/register",
		Path:   "/auth/register",
		Body:   req,
	})

	if err != nil {
		return user.User{}, err
	}

	return s.adoptUserSession(resp.Body)
}

// AdminLogin signs an administrator in by email and password.
func (s *AuthService) AdminLogin(ctx context.Context, req user.AdminLoginRequest) (user.Admin, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return user.Admin{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodPost,
		Route:  "/auth/admin/login",
		Path:   "/auth/admin/login",
		Body:   req,
	})

	if err != nil {
		return user.Admin{}, err
	}

	tok := client.FirstString(resp.Body, tokenAliases...)

	if tok == "" {
		return user.Admin{}, unexpectedShape("an access token")
	}

	var a user.Admin

	// some deployments return the admin under "admin", others reuse "user"
	if !client.Unwrap(s.client.Logger(), resp.Body, "admin", &a) {
		client.Unwrap(s.client.Logger(), resp.Body, "user", &a)
	}

	profile, _ := json.Marshal(a)

	if err := s.client.Session().SetAuthenticated(tok, profile, true); err != nil {
		return user.Admin{}, err
	}

	return a, nil
}

// Logout tells the backend best-effort, then clears the session, CSRF
// token and query cache no matter what the network said.
func (s *AuthService) Logout(ctx context.Context) error {
	_, netErr := s.client.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Route:         "/auth/logout",
		Path:          "/auth/logout",
		Authenticated: true,
	})

	if netErr != nil {
		s.client.Logger().Debug("logout request failed, clearing locally anyway", "err", netErr)
	}

	s.cache.Clear()

	return s.client.Session().Clear()
}

// Refresh exchanges the current token for a fresh one.
func (s *AuthService) Refresh(ctx context.Context) error {
	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Route:         "/auth/refresh-token",
		Path:          "/auth/refresh-token",
		Authenticated: true,
	})

	if err != nil {
		return err
	}

	tok := client.FirstString(resp.Body, tokenAliases...)

	if tok == "" {
		return unexpectedShape("a replacement token")
	}

	return s.client.Session().SetToken(tok)
}

func (s *AuthService) adoptUserSession(body []byte) (user.User, error) {
	tok := client.FirstString(body, tokenAliases...)

	if tok == "" {
		return user.User{}, unexpectedShape("an access token")
	}

	var u user.User
	client.Unwrap(s.client.Logger(), body, "user", &u)

	profile, _ := json.Marshal(u)

	if err := s.client.Session().SetAuthenticated(tok, profile, false); err != nil {
		return user.User{}, err
	}

	return u, nil
}
