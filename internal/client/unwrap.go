package client

import (
	"encoding/json"
	"log/slog"
	"reflect"

	"github.com/tidwall/gjson"
)

// The backend does not honor one response envelope. The same field can
// arrive flat, under "data", or under "data.data"; scalar fields go by
// several aliases. Unwrap tries an ordered list of locations and takes
// the first hit, never erroring on a miss.

// Locations returns the candidate paths for a named field, outermost
// first.
func Locations(name string) []string {
	return []string{name, "data." + name, "data.data." + name}
}

// Unwrap decodes the named field out of body into out. When no known
// location matches and out targets a slice, a bare top-level JSON array
// is accepted as the payload itself. Returns false (with out untouched)
// when nothing matched; it never panics on malformed bodies.
func Unwrap(log *slog.Logger, body []byte, name string, out any) bool {
	if !gjson.ValidBytes(body) {
		log.Debug("unwrap: body is not valid json", "field", name)
		return false
	}

	checked := Locations(name)

	for _, loc := range checked {
		v := gjson.GetBytes(body, loc)

		if !v.Exists() {
			continue
		}

		if err := json.Unmarshal([]byte(v.Raw), out); err != nil {
			log.Debug("unwrap: location matched but did not decode", "field", name, "location", loc, "err", err)
			continue
		}

		return true
	}

	// bare array fallback, list endpoints sometimes skip the envelope
	if wantsSlice(out) && gjson.ParseBytes(body).IsArray() {
		if err := json.Unmarshal(body, out); err == nil {
			return true
		}
	}

	log.Debug("unwrap: no location matched", "field", name, "checked", checked)

	return false
}

// FirstString runs the same ordered search across several scalar
// aliases, e.g. token/accessToken/access_token.
func FirstString(body []byte, names ...string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}

	for _, name := range names {
		for _, loc := range Locations(name) {
			v := gjson.GetBytes(body, loc)

			if v.Exists() && v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}

	return ""
}

func wantsSlice(out any) bool {
	t := reflect.TypeOf(out)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t != nil && t.Kind() == reflect.Slice
}
