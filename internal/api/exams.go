package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/imtihanhq/imtihanctl/internal/cache"
	"github.com/imtihanhq/imtihanctl/internal/client"
	"github.com/imtihanhq/imtihanctl/internal/domain/exam"
	"github.com/imtihanhq/imtihanctl/internal/domain/result"
)

type ExamService struct {
	client *client.Client
	cache  *cache.Cache
}

// List fetches exams matching the filter. Some deployments return the
// list bare, without any envelope; Unwrap tolerates both.
func (s *ExamService) List(ctx context.Context, filter exam.ListFilter) ([]exam.Exam, string, error) {
	limit := filter.Limit

	if limit <= 0 {
		limit = 20
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	if filter.SectionID != nil {
		q.Set("sectionId", *filter.SectionID)
	}
	if filter.Query != nil {
		q.Set("q", *filter.Query)
	}
	if filter.Cursor != "" {
		q.Set("cursor", filter.Cursor)
	}

	key := cache.BuildExamsListKey(limit, filter.SectionID, filter.Query, filter.Cursor)

	body, err := getCached(ctx, s.client, s.cache, key, client.Request{
		Method:        http.MethodGet,
		Route:         "/exams",
		Path:          "/exams",
		Query:         q,
		Authenticated: true,
	})

	if err != nil {
		return nil, "", err
	}

	var exams []exam.Exam
	client.Unwrap(s.client.Logger(), body, "exams", &exams)

	next := client.FirstString(body, "nextCursor", "next_cursor")

	return exams, next, nil
}

func (s *ExamService) Get(ctx context.Context, id string) (exam.Exam, error) {
	body, err := getCached(ctx, s.client, s.cache, cache.BuildExamKey(id), client.Request{
		Method:        http.MethodGet,
		Route:         "/exams/:id",
		Path:          "/exams/" + url.PathEscape(id),
		Authenticated: true,
	})

	if err != nil {
		return exam.Exam{}, err
	}

	var e exam.Exam
	if !client.Unwrap(s.client.Logger(), body, "exam", &e) {
		return exam.Exam{}, unexpectedShape("an exam")
	}

	return e, nil
}

// Submit sends the answers and invalidates every cache family the
// grading touches.
func (s *ExamService) Submit(ctx context.Context, id string, sub exam.Submission) (result.Result, error) {
	if apiErr := client.Validate(sub); apiErr != nil {
		return result.Result{}, apiErr
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:        http.MethodPost,
		Route:         "/exams/:id/submit",
		Path:          "/exams/" + url.PathEscape(id) + "/submit",
		Body:          sub,
		Authenticated: true,
	})

	if err != nil {
		return result.Result{}, err
	}

	s.cache.Invalidate(cache.PrefixResults)
	s.cache.Invalidate(cache.PrefixStats)
	s.cache.Invalidate(cache.PrefixExams)

	var r result.Result
	if !client.Unwrap(s.client.Logger(), resp.Body, "result", &r) {
		return result.Result{}, unexpectedShape("a result")
	}

	return r, nil
}
