package state

// Fixed session keys. These mirror the browser-storage slots the web
// client keeps, so names are stable on disk.
const (
	KeyAuthToken     = "auth_token"
	KeyTokenExpires  = "auth_token_expires_at"
	KeyIsAdmin       = "auth_is_admin"
	KeyCSRFToken     = "csrf_token"
	KeyProfile       = "auth_profile"
	KeyResultsCursor = "results_cursor"
)

// SessionKeys is everything Clear-on-logout removes.
var SessionKeys = []string{KeyAuthToken, KeyTokenExpires, KeyIsAdmin, KeyCSRFToken, KeyProfile}

// Store is a tiny flat key/value store with whole-key overwrite
// semantics. No transactions; the last write wins.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
	Clear() error
}
