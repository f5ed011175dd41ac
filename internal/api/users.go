package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/imtihanhq/imtihanctl/internal/cache"
	"github.com/imtihanhq/imtihanctl/internal/client"
	"github.com/imtihanhq/imtihanctl/internal/domain/result"
	"github.com/imtihanhq/imtihanctl/internal/domain/user"
)

type UserService struct {
	client *client.Client
	cache  *cache.Cache
}

func (s *UserService) Me(ctx context.Context) (user.User, error) {
	body, err := getCached(ctx, s.client, s.cache, cache.BuildMeKey(), client.Request{
		Method:        http.MethodGet,
		Route:         "/users/me",
		Path:          "/users/me",
		Authenticated: true,
	})

	if err != nil {
		return user.User{}, err
	}

	var u user.User
	if !client.Unwrap(s.client.Logger(), body, "user", &u) {
		return user.User{}, unexpectedShape("a user")
	}

	return u, nil
}

func (s *UserService) UpdateMe(ctx context.Context, req user.UpdateProfileRequest) (user.User, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return user.User{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPut,
		Route:         "/users/me",
		Path:          "/users/me",
		Body:          req,
		Authenticated: true,
	})

	if err != nil {
		return user.User{}, err
	}

	s.cache.Invalidate(cache.PrefixMe)

	var u user.User
	if !client.Unwrap(s.client.Logger(), resp.Body, "user", &u) {
		return user.User{}, unexpectedShape("a user")
	}

	return u, nil
}

// Results pages through the caller's own exam results with an opaque
// cursor.
func (s *UserService) Results(ctx context.Context, limit int, cursor string) ([]result.Result, string, error) {
	if limit <= 0 {
		limit = 20
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	if cursor != "" {
		q.Set("cursor", cursor)
	}

	body, err := getCached(ctx, s.client, s.cache, cache.BuildMyResultsKey(limit, cursor), client.Request{
		Method:        http.MethodGet,
		Route:         "/users/me/results",
		Path:          "/users/me/results",
		Query:         q,
		Authenticated: true,
	})

	if err != nil {
		return nil, "", err
	}

	var results []result.Result
	client.Unwrap(s.client.Logger(), body, "results", &results)

	next := client.FirstString(body, "nextCursor", "next_cursor")

	return results, next, nil
}
