package intervention

import "fmt"

// ValidationError rejects a malformed request. Retrying the same request
// cannot succeed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConcurrencyConflict rejects a request whose token is stale. The caller
// should refetch the station and decide whether to try again.
type ConcurrencyConflict struct {
	Station  string
	Expected string
	Actual   string
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("station %s changed since token %s was issued", e.Station, e.Expected)
}
