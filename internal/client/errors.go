package client

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Error taxonomy codes. Everything a request can fail with maps onto
// one of these, with unknown_error as the catch-all.
const (
	CodeNetworkError    = "network_error"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeCSRFInvalid     = "csrf_invalid"
	CodeValidationError = "validation_error"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeInternalError   = "internal_error"
	CodeUnknownError    = "unknown_error"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

type APIError struct {
	Status    int          `json:"status"`
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	RequestID string       `json:"requestId,omitempty"`
	Fields    []FieldError `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// AuthRequiredError is the locally-fatal outcome of an expired session
// or a 401: the session has been cleared and the user must sign in
// again at LoginRoute.
type AuthRequiredError struct {
	Reason     string // "expired" | "unauthorized"
	LoginRoute string
}

func (e *AuthRequiredError) Error() string {
	return "authentication required (" + e.Reason + "), sign in at " + e.LoginRoute
}

// ForbiddenError is the local rejection of an admin-only call made
// with a non-admin session. It never reaches the network.
type ForbiddenError struct{}

func (e *ForbiddenError) Error() string {
	return "forbidden: admin session required"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidationError
	default:
		if status >= 500 {
			return CodeInternalError
		}
		return CodeUnknownError
	}
}

func defaultMessage(code string) string {
	switch code {
	case CodeNetworkError:
		return "Could not reach the server. Check your connection and try again."
	case CodeUnauthorized:
		return "Your session has ended. Please sign in again."
	case CodeForbidden:
		return "You do not have permission to do that."
	case CodeCSRFInvalid:
		return "The request could not be verified. Please retry."
	case CodeValidationError:
		return "Some fields are invalid."
	case CodeNotFound:
		return "The requested item was not found."
	case CodeConflict:
		return "This conflicts with something that already exists."
	case CodeInternalError:
		return "The server ran into a problem. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

// parseAPIError normalizes a non-2xx body into an APIError. The
// backend is not consistent about its error envelope, so several known
// shapes are tried before falling back to the status-derived code.
func parseAPIError(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{
		Status:    status,
		Code:      codeForStatus(status),
		RequestID: requestID,
	}

	if len(body) > 0 && gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)

		// {"error":{"code","message","details":{"fields":[...]}}}
		if e := root.Get("error"); e.IsObject() {
			fillFromEnvelope(apiErr, e)
			fillFields(apiErr, e.Get("details.fields"))
		} else {
			// {"success":false,"code","message","errors":[...]} and {"code","msg"}
			fillFromEnvelope(apiErr, root)
			fillFields(apiErr, root.Get("errors"))
			fillFields(apiErr, root.Get("data.errors"))
		}
	}

	if len(apiErr.Fields) > 0 && status < 500 {
		apiErr.Code = CodeValidationError
	}

	if apiErr.Message == "" {
		apiErr.Message = defaultMessage(apiErr.Code)
	}

	return apiErr
}

func fillFromEnvelope(apiErr *APIError, node gjson.Result) {
	if code := node.Get("code").String(); code != "" {
		apiErr.Code = normalizeCode(code)
	}

	for _, key := range []string{"message", "msg"} {
		if msg := node.Get(key).String(); msg != "" {
			apiErr.Message = msg
			break
		}
	}
}

func fillFields(apiErr *APIError, node gjson.Result) {
	if !node.IsArray() || len(apiErr.Fields) > 0 {
		return
	}

	for _, item := range node.Array() {
		fe := FieldError{
			Field:   item.Get("field").String(),
			Rule:    item.Get("rule").String(),
			Param:   item.Get("param").String(),
			Message: item.Get("message").String(),
		}

		if fe.Field == "" {
			fe.Field = item.Get("path").String()
		}
		if fe.Message == "" {
			fe.Message = item.Get("msg").String()
		}

		if fe.Field != "" || fe.Message != "" {
			apiErr.Fields = append(apiErr.Fields, fe)
		}
	}
}

// normalizeCode folds backend-specific codes into the taxonomy, keeping
// unrecognized codes verbatim so nothing is lost for the caller.
func normalizeCode(code string) string {
	if isCSRFCode(code) {
		return CodeCSRFInvalid
	}

	switch code {
	case "invalid_request", "invalid_payload":
		return CodeValidationError
	case "invalid_credentials":
		return CodeUnauthorized
	}

	return code
}

func isCSRFCode(code string) bool {
	switch code {
	case "EBADCSRFTOKEN", "CSRF_ERROR", CodeCSRFInvalid:
		return true
	}
	return false
}

// isCSRFFailure spots the CSRF-specific 403 subcase the pipeline is
// allowed to retry once.
func isCSRFFailure(status int, apiErr *APIError) bool {
	if status != http.StatusForbidden || apiErr == nil {
		return false
	}

	if apiErr.Code == CodeCSRFInvalid {
		return true
	}

	return strings.Contains(strings.ToLower(apiErr.Message), "csrf")
}
