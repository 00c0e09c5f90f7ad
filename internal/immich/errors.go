package immich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var (
	// ErrMalformedResponse marks a backend payload whose shape could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUnknownAction is returned for actions outside delete/keep/fav/archive.
	ErrUnknownAction = errors.New("unknown action")
	// ErrClosed is returned by a transport after Close.
	ErrClosed = errors.New("transport closed")
)

const maxErrorDetail = 240

// TransientError wraps a connect or read timeout. These are the only failures
// the transport retries.
type TransientError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s %s: transient network error: %v", e.Method, e.Path, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// StatusError is a non-2xx reply from the backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
}

// IsTransient reports whether err is a retryable network timeout.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ErrorKind names the error class for the JSON contract exposed to callers.
func ErrorKind(err error) string {
	var te *TransientError
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		return "TransientNetworkError"
	case errors.As(err, &se):
		return "BackendRejection"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	case errors.Is(err, ErrUnknownAction):
		return "UnknownAction"
	default:
		return "Error"
	}
}

// isTimeout classifies a failed round trip. A deadline on the caller's own
// context is not a timeout of the request and must not be retried.
func isTimeout(parent context.Context, err error) bool {
	if err == nil || parent.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// summarizeBody condenses an error body into one short line. JSON bodies
// contribute their message field; HTML error pages from reverse proxies are
// flattened to text.
func summarizeBody(contentType string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	text := string(body)
	switch {
	case strings.Contains(contentType, "json"):
		var payload struct {
			Message json.RawMessage `json:"message"`
			Error   string          `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if msg := messageText(payload.Message); msg != "" {
				text = msg
			} else if payload.Error != "" {
				text = payload.Error
			}
		}
	case strings.Contains(contentType, "html"):
		if md, err := htmltomarkdown.ConvertString(text); err == nil {
			text = md
		}
	}
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if len(text) > maxErrorDetail {
		text = text[:maxErrorDetail] + "..."
	}
	return text
}

// messageText accepts the backend's message as either a string or a list of
// validation strings.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}
