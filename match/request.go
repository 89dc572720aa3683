package match

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Request is a matcher over a captured outgoing request. A Request either passes
// (nil) or returns a descriptive error, usually a *Failure. Requests attached to
// the same expectation are evaluated in attachment order and fail fast: the
// first error aborts the whole match attempt.
type Request func(req *CapturedRequest) error

// NoContent returns a matcher which will check that the request carries no body.
func NoContent() Request {
	return func(req *CapturedRequest) error {
		if req.Body.Kind != BodyAbsent {
			return failf(ExpectedAbsence, "NoContent: request body is %s, expected none", req.Body.Kind)
		}
		return nil
	}
}

// Authenticated returns a matcher which will check that the request carries an
// Authorization header. If pred is non-nil it is additionally applied to the
// header's scheme and credentials, e.g.
//
//	match.Authenticated(func(scheme, credentials string) bool {
//		return scheme == "Bearer" && credentials == "wooga"
//	})
//
// Presence alone is sufficient when pred is nil.
func Authenticated(pred func(scheme, credentials string) bool) Request {
	return func(req *CapturedRequest) error {
		auth := req.Header.Get("Authorization")
		if auth == "" {
			return failf(ExpectedPresence, "Authenticated: no Authorization header on %s %s", req.Method, req.URL.Path)
		}
		if pred == nil {
			return nil
		}
		scheme, credentials, _ := strings.Cut(auth, " ")
		if !pred(scheme, credentials) {
			return failf(PredicateMismatch, "Authenticated: the authentication predicate did not match '%s'", auth)
		}
		return nil
	}
}

// JSONBody returns a matcher which will check that the request body is valid
// JSON satisfying shape. A nil shape only requires that the body parses.
func JSONBody(shape *Shape) Request {
	return func(req *CapturedRequest) error {
		switch req.Body.Kind {
		case BodyAbsent:
			return failf(ExpectedPresence, "JSONBody: request has no body")
		case BodyMultipart:
			return failf(TypeMismatch, "JSONBody: request body is multipart, not JSON")
		}
		if !gjson.ValidBytes(req.Body.Bytes) {
			return failf(TypeMismatch, "JSONBody: request body is not valid JSON: %s", truncate(string(req.Body.Bytes)))
		}
		if shape == nil {
			return nil
		}
		return shape.Match(gjson.ParseBytes(req.Body.Bytes))
	}
}
