package capability

import "fmt"

// BackendUnavailableError reports that a decision or training backend could
// not be reached. The engine treats it like any other node failure unless it
// occurs before any node has run, in which case the whole workflow run fails
// fast.
type BackendUnavailableError struct {
	Backend string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend '%s' unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }
