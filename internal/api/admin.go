package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/imtihanhq/imtihanctl/internal/cache"
	"github.com/imtihanhq/imtihanctl/internal/client"
	"github.com/imtihanhq/imtihanctl/internal/domain/exam"
	"github.com/imtihanhq/imtihanctl/internal/domain/section"
	"github.com/imtihanhq/imtihanctl/internal/domain/stats"
	"github.com/imtihanhq/imtihanctl/internal/domain/user"
)

// AdminService covers the management surface. Every call is AdminOnly,
// so a non-admin session is rejected before the network.
type AdminService struct {
	client *client.Client
	cache  *cache.Cache
}

func (s *AdminService) Stats(ctx context.Context) (stats.AdminStats, error) {
	body, err := getCached(ctx, s.client, s.cache, cache.BuildStatsKey(), client.Request{
		Method:        http.MethodGet,
		Route:         "/admin/stats",
		Path:          "/admin/stats",
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return stats.AdminStats{}, err
	}

	var st stats.AdminStats
	if !client.Unwrap(s.client.Logger(), body, "stats", &st) {
		return stats.AdminStats{}, unexpectedShape("stats")
	}

	return st, nil
}

// user management

func (s *AdminService) ListUsers(ctx context.Context) ([]user.User, error) {
	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodGet,
		Route:         "/admin/users",
		Path:          "/admin/users",
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return nil, err
	}

	var users []user.User
	client.Unwrap(s.client.Logger(), resp.Body, "users", &users)

	return users, nil
}

func (s *AdminService) CreateUser(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return user.User{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Route:         "/admin/users",
		Path:          "/admin/users",
		Body:          req,
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return user.User{}, err
	}

	s.cache.Invalidate(cache.PrefixStats)

	var u user.User
	if !client.Unwrap(s.client.Logger(), resp.Body, "user", &u) {
		return user.User{}, unexpectedShape("a user")
	}

	return u, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return user.User{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPut,
		Route:         "/admin/users/:id",
		Path:          "/admin/users/" + url.PathEscape(id),
		Body:          req,
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return user.User{}, err
	}

	var u user.User
	if !client.Unwrap(s.client.Logger(), resp.Body, "user", &u) {
		return user.User{}, unexpectedShape("a user")
	}

	return u, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodDelete,
		Route:         "/admin/users/:id",
		Path:          "/admin/users/" + url.PathEscape(id),
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return err
	}

	s.cache.Invalidate(cache.PrefixStats)

	return nil
}

// exam management

func (s *AdminService) CreateExam(ctx context.Context, req exam.CreateExamRequest) (exam.Exam, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return exam.Exam{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Route:         "/admin/exams",
		Path:          "/admin/exams",
		Body:          req,
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return exam.Exam{}, err
	}

	s.cache.Invalidate(cache.PrefixExams)
	s.cache.Invalidate(cache.PrefixSections)
	s.cache.Invalidate(cache.PrefixStats)

	var e exam.Exam
	if !client.Unwrap(s.client.Logger(), resp.Body, "exam", &e) {
		return exam.Exam{}, unexpectedShape("an exam")
	}

	return e, nil
}

func (s *AdminService) UpdateExam(ctx context.Context, id string, req exam.UpdateExamRequest) (exam.Exam, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return exam.Exam{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPut,
		Route:         "/admin/exams/:id",
		Path:          "/admin/exams/" + url.PathEscape(id),
		Body:          req,
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return exam.Exam{}, err
	}

	s.cache.Invalidate(cache.PrefixExams)

	var e exam.Exam
	if !client.Unwrap(s.client.Logger(), resp.Body, "exam", &e) {
		return exam.Exam{}, unexpectedShape("an exam")
	}

	return e, nil
}

func (s *AdminService) DeleteExam(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodDelete,
		Route:         "/admin/exams/:id",
		Path:          "/admin/exams/" + url.PathEscape(id),
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return err
	}

	s.cache.Invalidate(cache.PrefixExams)
	s.cache.Invalidate(cache.PrefixStats)

	return nil
}

// section management

func (s *AdminService) CreateSection(ctx context.Context, req section.CreateSectionRequest) (section.Section, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return section.Section{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Route:         "/admin/sections",
		Path:          "/admin/sections",
		Body:          req,
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return section.Section{}, err
	}

	s.cache.Invalidate(cache.PrefixSections)
	s.cache.Invalidate(cache.PrefixStats)

	var sec section.Section
	if !client.Unwrap(s.client.Logger(), resp.Body, "section", &sec) {
		return section.Section{}, unexpectedShape("a section")
	}

	return sec, nil
}

func (s *AdminService) UpdateSection(ctx context.Context, id string, req section.UpdateSectionRequest) (section.Section, error) {
	if apiErr := client.Validate(req); apiErr != nil {
		return section.Section{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPut,
		Route:         "/admin/sections/:id",
		Path:          "/admin/sections/" + url.PathEscape(id),
		Body:          req,
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return section.Section{}, err
	}

	s.cache.Invalidate(cache.PrefixSections)

	var sec section.Section
	if !client.Unwrap(s.client.Logger(), resp.Body, "section", &sec) {
		return section.Section{}, unexpectedShape("a section")
	}

	return sec, nil
}

func (s *AdminService) DeleteSection(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodDelete,
		Route:         "/admin/sections/:id",
		Path:          "/admin/sections/" + url.PathEscape(id),
		Authenticated: true,
		AdminOnly:     true,
	})

	if err != nil {
		return err
	}

	s.cache.Invalidate(cache.PrefixSections)
	s.cache.Invalidate(cache.PrefixStats)

	return nil
}
