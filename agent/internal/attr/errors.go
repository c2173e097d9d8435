package attr

import "fmt"

// AccessError reports that one attribute could not be read or written.
// Callers skip the attribute and carry on.
type AccessError struct {
	Attribute string
	Op        string // "read" | "write"
	Err       error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("attr: %s %s: %v", e.Op, e.Attribute, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }
