package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// envelopeError is the {"error":{"code","message"}} body shape.
type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// remoteError is what could be recovered from an error body.
type remoteError struct {
	code    string
	message string
	fields  map[string]string
}

// ParseResponseError reads the body of a non-2xx response and translates it
// into an *apperrors.AppError. It understands the {"error":{...}} envelope and
// the REST framework shapes: {"detail": "..."}, {"error": "..."},
// {"message": "..."}, and field maps such as {"email": ["..."]} either at the
// top level or under "error". op names the call for server-side failures.
//
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, op string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.RemoteCallFailed(op, fmt.Errorf("status %d, read body: %w", resp.StatusCode, err))
	}

	return mapStatus(resp.StatusCode, op, decodeRemoteError(body))
}

func decodeRemoteError(body []byte) remoteError {
	var raw map[string]json.RawMessage
	if json.Unmarshal(body, &raw) != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil && len(list) > 0 {
			return remoteError{message: list[0]}
		}
		return remoteError{}
	}

	if inner, ok := raw["error"]; ok {
		var s string
		if json.Unmarshal(inner, &s) == nil {
			return remoteError{message: s}
		}
		var env envelopeError
		if json.Unmarshal(inner, &env) == nil && (env.Code != "" || env.Message != "") {
			return remoteError{code: env.Code, message: env.Message}
		}
		var nested map[string]json.RawMessage
		if json.Unmarshal(inner, &nested) == nil {
			return fieldErrors(nested)
		}
	}

	for _, key := range []string{"detail", "message"} {
		if v, ok := raw[key]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil && s != "" {
				return remoteError{message: s}
			}
		}
	}

	return fieldErrors(raw)
}

// fieldErrors flattens {"field": ["msg", ...]} or {"field": "msg"} into one
// message per field. non_field_errors becomes the overall message.
func fieldErrors(raw map[string]json.RawMessage) remoteError {
	fields := make(map[string]string, len(raw))
	for name, v := range raw {
		if msg := firstString(v); msg != "" {
			fields[name] = msg
		}
	}
	if len(fields) == 0 {
		return remoteError{}
	}

	var out remoteError
	if msg, ok := fields["non_field_errors"]; ok {
		out.message = msg
		delete(fields, "non_field_errors")
	}
	if len(fields) > 0 {
		out.fields = fields
	}
	if out.message == "" {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		out.message = fmt.Sprintf("%s: %s", names[0], fields[names[0]])
	}
	return out
}

func firstString(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(v, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

func mapStatus(status int, op string, re remoteError) error {
	msg := re.message
	if msg == "" {
		msg = strings.ToLower(http.StatusText(status))
	}

	var appErr *apperrors.AppError
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		appErr = apperrors.InvalidInput(msg)
	case status == http.StatusUnauthorized:
		appErr = apperrors.Unauthorized(msg)
	case status == http.StatusForbidden:
		appErr = apperrors.Forbidden(msg)
	case status == http.StatusNotFound:
		appErr = &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: msg,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case status == http.StatusConflict:
		appErr = apperrors.Conflict(msg)
	case status == http.StatusGone:
		appErr = apperrors.Gone(msg)
	case status == http.StatusServiceUnavailable:
		appErr = apperrors.ServiceUnavailable(msg)
	case status >= 500:
		return apperrors.RemoteCallFailed(op, fmt.Errorf("status %d: %s", status, msg))
	default:
		code := re.code
		if code == "" {
			code = "REMOTE_ERROR"
		}
		appErr = &apperrors.AppError{Code: code, Message: msg, Status: status}
	}

	appErr.Fields = re.fields
	return appErr
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
