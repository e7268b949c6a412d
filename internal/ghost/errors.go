package ghost

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the admin API with the upstream
// status code and best-effort extracted message.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ghost api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ghost api error (%d)", e.StatusCode)
}

// parseAPIError extracts a message from a Ghost error response. Ghost
// returns an errors array of {message, context, type} objects; anything
// else falls back to the raw body.
func parseAPIError(statusCode int, body []byte) *APIError {
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
			Context string `json:"context"`
			Type    string `json:"type"`
		} `json:"errors"`
	}

	if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msg := e.Message
			if e.Context != "" {
				msg = fmt.Sprintf("%s: %s", e.Message, e.Context)
			}
			msgs = append(msgs, msg)
		}
		return &APIError{
			StatusCode: statusCode,
			Message:    strings.Join(msgs, "; "),
			Body:       string(body),
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
		Body:       string(body),
	}
}
