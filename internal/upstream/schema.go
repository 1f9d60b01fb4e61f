package upstream

import (
	"fmt"
	"time"
)

// SchemaError is an upstream response that did not match the expected shape.
// Payload holds the raw response body for diagnostics.
type SchemaError struct {
	Resource string
	Payload  []byte
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s response: %v", e.Resource, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime parses the timestamp formats seen in VR and digitraffic payloads.
// Timestamps without a zone are taken as UTC.
func ParseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
