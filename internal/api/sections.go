package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/imtihanhq/imtihanctl/internal/cache"
	"github.com/imtihanhq/imtihanctl/internal/client"
	"github.com/imtihanhq/imtihanctl/internal/domain/section"
)

type SectionService struct {
	client *client.Client
	cache  *cache.Cache
}

func (s *SectionService) List(ctx context.Context) ([]section.Section, error) {
	body, err := getCached(ctx, s.client, s.cache, cache.BuildSectionsListKey(), client.Request{
		Method:        http.MethodGet,
		Route:         "/sections",
		Path:          "/sections",
		Authenticated: true,
	})

	if err != nil {
		return nil, err
	}

	var sections []section.Section
	client.Unwrap(s.client.Logger(), body, "sections", &sections)

	return sections, nil
}

func (s *SectionService) Get(ctx context.Context, id string) (section.Section, error) {
	body, err := getCached(ctx, s.client, s.cache, cache.BuildSectionKey(id), client.Request{
		Method:        http.MethodGet,
		Route:         "/sections/:id",
		Path:          "/sections/" + url.PathEscape(id),
		Authenticated: true,
	})

	if err != nil {
		return section.Section{}, err
	}

	var sec section.Section
	if !client.Unwrap(s.client.Logger(), body, "section", &sec) {
		return section.Section{}, unexpectedShape("a section")
	}

	return sec, nil
}
