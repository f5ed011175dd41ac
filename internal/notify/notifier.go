package notify

import (
	"context"

	"github.com/imtihanhq/imtihanctl/internal/domain/result"
)

// Notifier announces results the watcher has not seen before.
type Notifier interface {
	AnnounceResult(ctx context.Context, r result.Result) error
}
