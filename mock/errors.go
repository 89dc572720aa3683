package mock

import (
	"fmt"
	"strings"
)

// ExpectationsError reports a dispatched request that matched no expectation,
// carrying each candidate expectation's first failure so the test output shows
// exactly why every one of them rejected the request.
type ExpectationsError struct {
	Method   string
	Path     string
	Failures []error
}

func (e *ExpectationsError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("mock: no expectations registered for %s %s", e.Method, e.Path)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "mock: no expectation matched %s %s: [", e.Method, e.Path)
	for _, err := range e.Failures {
		b.WriteString("\n   ")
		b.WriteString(err.Error())
	}
	b.WriteString("\n]")
	return b.String()
}
