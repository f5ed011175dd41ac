package watch

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/domain/result"
)

// ResultCursor marks the last announced result so restarts resume
// instead of re-announcing history.
type ResultCursor struct {
	SubmittedAt time.Time `json:"submittedAt"`
	ID          string    `json:"id"`
}

func EncodeResultCursor(submittedAt time.Time, id string) (string, error) {
	b, err := json.Marshal(ResultCursor{SubmittedAt: submittedAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeResultCursor(cursor string) (ResultCursor, error) {
	if cursor == "" {
		return ResultCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return ResultCursor{}, err
	}

	var c ResultCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return ResultCursor{}, err
	}
	if c.ID == "" || c.SubmittedAt.IsZero() {
		return ResultCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}

// SeenBefore reports whether the cursor already covers r. Ties on the
// timestamp break on the id so equal-second submissions still advance.
func (c ResultCursor) SeenBefore(r result.Result) bool {
	if c.ID == "" {
		return false
	}

	if r.SubmittedAt.After(c.SubmittedAt) {
		return false
	}

	if r.SubmittedAt.Equal(c.SubmittedAt) {
		return r.ID <= c.ID
	}

	return true
}
