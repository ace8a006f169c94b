package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"shopsync/internal/model"
)

// errorResponse is the store's error body. Either field may carry the
// user-facing message.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseError converts a non-2xx response into a *model.OpError.
func parseError(op string, resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return model.NewSessionExpiredError(op)
	}

	var payload errorResponse
	json.Unmarshal(body, &payload) // Best effort parse

	msg := strings.TrimSpace(payload.Error)
	if msg == "" {
		msg = strings.TrimSpace(payload.Message)
	}
	if msg == "" {
		msg = fallbackMessage(resp.StatusCode)
	}

	err := model.NewRemoteError(op, resp.StatusCode, msg)
	if resp.StatusCode == http.StatusTooManyRequests {
		err.RetryAfter = retryAfter(resp.Header)
	}
	return err
}

func fallbackMessage(status int) string {
	switch status {
	case http.StatusForbidden:
		return "You do not have access to this resource"
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusTooManyRequests:
		return "Too many requests, please try again later"
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}
