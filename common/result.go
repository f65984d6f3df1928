package common

import "fmt"

// Result is what every file task produces, failures included.
type Result struct {
	Path   string
	Kind   SourceKind
	Status Status
	Err    error
}

// ErrorLine formats failure for the error log, one line per failure. Returns
// empty string when result does not carry an error.
func (r Result) ErrorLine() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("Error processing %s %s: %v", r.Kind, r.Path, r.Err)
}
