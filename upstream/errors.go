package upstream

import (
	"fmt"

	"github.com/pkg/errors"
)

// APIError is a non-2xx answer from the survey backend, decoded from its
// error envelope when one is present.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
}

// Temporary reports whether a retry could plausibly succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.Status == 429
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
