// Package mock implements an in-memory http.RoundTripper which answers requests
// from an ordered list of expectations instead of the network.
//
// Tests register expectations during setup, attach request matchers to them, and
// hand the transport (or a client built on it) to the code under test. At
// dispatch time the transport snapshots the outgoing request once and tries each
// expectation in registration order; the first whose method, path and matcher
// chain all pass answers with its canned response. If none match, the dispatch
// fails with a report of what every candidate rejected.
package mock

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wirematch/wirematch/ct"
	"github.com/wirematch/wirematch/match"
)

// Transport is a mock http.RoundTripper. Expectation registration is setup-phase;
// dispatch is safe for concurrent use because each call evaluates pure matchers
// over its own immutable snapshot.
type Transport struct {
	t ct.TestLike

	// UnexpectedRequestsAreErrors also fails the test (rather than only erroring
	// the dispatch) when a request matches no expectation. Default: true.
	UnexpectedRequestsAreErrors bool

	// Logger, if set, logs every match attempt at debug level.
	Logger *logrus.Logger

	mu           sync.Mutex
	expectations []*Expectation
}

// NewTransport creates a mock transport reporting against t.
func NewTransport(t ct.TestLike) *Transport {
	return &Transport{
		t:                           t,
		UnexpectedRequestsAreErrors: true,
	}
}

// Expect registers an expectation for the given method and path pattern, in
// order, and returns it for fluent configuration. The path pattern is a
// gorilla/mux route, so templates like "/widgets/{id}" work; an empty pattern
// matches any path and an empty method matches any method.
func (tr *Transport) Expect(method, pathPattern string) *Expectation {
	e := &Expectation{
		ID:      uuid.NewString(),
		t:       tr.t,
		method:  method,
		pattern: pathPattern,
		status:  http.StatusOK,
	}
	if pathPattern != "" {
		e.router = mux.NewRouter()
		e.router.Path(pathPattern)
	}
	tr.mu.Lock()
	tr.expectations = append(tr.expectations, e)
	tr.mu.Unlock()
	return e
}

// Client returns an http.Client dispatching through this transport.
func (tr *Transport) Client() *http.Client {
	return &http.Client{Transport: tr}
}

// RoundTrip implements http.RoundTripper. The outgoing request is snapshotted
// once; expectations are tried in registration order and the first full match
// answers. A request matching no expectation returns an *ExpectationsError
// aggregating each candidate's first failure.
func (tr *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	captured, err := match.Capture(req)
	if err != nil {
		return nil, fmt.Errorf("mock: %s %s: %s", req.Method, req.URL.Path, err)
	}
	tr.mu.Lock()
	expectations := append([]*Expectation(nil), tr.expectations...)
	tr.mu.Unlock()

	failures := make([]error, 0, len(expectations))
	for _, e := range expectations {
		evalErr := e.evaluate(captured, req)
		if evalErr == nil {
			if tr.Logger != nil {
				tr.Logger.WithFields(logrus.Fields{
					"method":      captured.Method,
					"path":        req.URL.Path,
					"expectation": e.ID,
				}).Debug("expectation matched")
			}
			return e.respond(req), nil
		}
		if tr.Logger != nil {
			tr.Logger.WithFields(logrus.Fields{
				"method":      captured.Method,
				"path":        req.URL.Path,
				"expectation": e.ID,
				"reason":      evalErr.Error(),
			}).Debug("expectation rejected")
		}
		failures = append(failures, fmt.Errorf("%s: %s", e.describe(), evalErr))
	}

	unmatched := &ExpectationsError{
		Method:   req.Method,
		Path:     req.URL.Path,
		Failures: failures,
	}
	if tr.t != nil && tr.UnexpectedRequestsAreErrors {
		ct.Errorf(tr.t, "Transport.UnexpectedRequestsAreErrors=true received unexpected request: %s", unmatched)
	}
	return nil, unmatched
}

// Verify fails the test for every registered expectation that never answered a
// request. Call it (usually deferred) after the code under test has run.
func (tr *Transport) Verify(t ct.TestLike) {
	t.Helper()
	tr.mu.Lock()
	expectations := append([]*Expectation(nil), tr.expectations...)
	tr.mu.Unlock()
	for _, e := range expectations {
		if e.Hits() == 0 {
			ct.Errorf(t, "Transport.Verify: expectation %s was never satisfied", e.describe())
		}
	}
}

var _ http.RoundTripper = (*Transport)(nil)
