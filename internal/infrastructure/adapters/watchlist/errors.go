package watchlist

import (
	"fmt"
	"net/http"
)

// ErrorResponse is a non-2xx answer from the screening API.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("screening API error [%d]: %s (code: %s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("screening API error [%d]: %s", e.StatusCode, e.Message)
}

func (e *ErrorResponse) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func (e *ErrorResponse) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Temporary marks answers worth retrying later.
func (e *ErrorResponse) Temporary() bool {
	return e.IsRateLimited() || e.StatusCode >= http.StatusInternalServerError
}
