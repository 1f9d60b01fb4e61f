package upstream

import (
	"errors"
	"fmt"
)

// RequestError describes a failed upstream request.
// Secrets in RequestBody and RequestHeaders are already masked.
type RequestError struct {
	Method         string
	URL            string
	StatusCode     int
	RequestBody    map[string]any
	RequestHeaders map[string]string
	ResponseBody   []byte
	Err            error
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
