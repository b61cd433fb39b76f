package arr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + truncate(body, 200)
	}
	return msg
}

// Is maps authentication failures to domain.ErrUnauthorized and every other
// status to domain.ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	case domain.ErrUnexpectedStatus:
		return e.Code != http.StatusUnauthorized && e.Code != http.StatusForbidden
	}
	return false
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
