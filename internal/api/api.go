package api

import (
	"context"
	"net/http"

	"github.com/imtihanhq/imtihanctl/internal/cache"
	"github.com/imtihanhq/imtihanctl/internal/client"
)

// Services bundles one constructed service per backend concern, all
// sharing the same client pipeline and query cache.
type Services struct {
	Auth     *AuthService
	Users    *UserService
	Exams    *ExamService
	Sections *SectionService
	Admin    *AdminService
	Health   *HealthService
}

func NewServices(c *client.Client, qc *cache.Cache) *Services {
	// any forced logout purges cached reads too
	c.OnSessionClear(qc.Clear)

	return &Services{
		Auth:     &AuthService{client: c, cache: qc},
		Users:    &UserService{client: c, cache: qc},
		Exams:    &ExamService{client: c, cache: qc},
		Sections: &SectionService{client: c, cache: qc},
		Admin:    &AdminService{client: c, cache: qc},
		Health:   &HealthService{client: c},
	}
}

// getCached routes a GET through the query cache, turning remembered
// ETags into conditional requests.
func getCached(ctx context.Context, c *client.Client, qc *cache.Cache, key string, req client.Request) ([]byte, error) {
	return qc.GetOrFetch(ctx, key, func(ctx context.Context, ifNoneMatch string) (*cache.FetchResult, error) {
		if ifNoneMatch != "" {
			req.Header = http.Header{"If-None-Match": []string{ifNoneMatch}}
		}

		resp, err := c.Do(ctx, req)

		if err != nil {
			return nil, err
		}

		if resp.Status == http.StatusNotModified {
			return &cache.FetchResult{NotModified: true}, nil
		}

		return &cache.FetchResult{Body: resp.Body, ETag: resp.Header.Get("ETag")}, nil
	})
}

// unexpectedShape is returned when a 2xx body yields none of the known
// payload locations. The normalizer never throws, so this is the only
// place a missing payload becomes an error the caller can show.
func unexpectedShape(field string) *client.APIError {
	return &client.APIError{
		Code:    client.CodeUnknownError,
		Message: "The server response did not include " + field + ".",
	}
}
