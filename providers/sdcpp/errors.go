package sdcpp

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sdcpp-tools/sdcli/core"
)

// parseServerError maps a non-2xx response to a *core.ServerError, pulling
// the OpenAI-style error body out when one is present.
func parseServerError(status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = http.StatusText(status)
		}
		return &core.ServerError{
			Status:  status,
			Code:    "unknown",
			Message: message,
			Err:     statusError(status),
		}
	}

	return &core.ServerError{
		Status:  status,
		Code:    errResp.Error.Code,
		Message: errResp.Error.Message,
		Err:     statusError(status),
	}
}

// statusError maps HTTP status codes to sentinel errors.
func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return core.ErrUnauthorized
	case http.StatusTooManyRequests:
		return core.ErrRateLimited
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusBadRequest:
		return core.ErrBadRequest
	default:
		if status >= 500 {
			return core.ErrServer
		}
		return core.ErrBadRequest
	}
}
