package api

import (
	"context"
	"net/http"

	"github.com/imtihanhq/imtihanctl/internal/client"
)

type HealthService struct {
	client *client.Client
}

// Ping checks the backend is reachable. No auth, no cache.
func (s *HealthService) Ping(ctx context.Context) error {
	_, err := s.client.Do(ctx, client.Request{
		Method: http.MethodGet,
		Route:  "/health",
		Path:   "/health",
	})

	return err
}
