// Package must contains assertions for tests, which fail the test if the assertion fails.
package must

import (
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/wirematch/wirematch/ct"
	"github.com/wirematch/wirematch/match"
	"github.com/wirematch/wirematch/should"
)

// NotError will ensure `err` is nil else terminate the test with `msg`.
func NotError(t ct.TestLike, msg string, err error) {
	t.Helper()
	if err != nil {
		ct.Fatalf(t, "must.NotError: %s -> %s", msg, err)
	}
}

// Match evaluates matchers against a captured request in order, terminating the
// test on the first failure.
func Match(t ct.TestLike, req *match.CapturedRequest, matchers ...match.Request) {
	t.Helper()
	if err := should.Match(req, matchers...); err != nil {
		ct.Fatalf(t, err.Error())
	}
}

// MatchRequest snapshots the HTTP request and evaluates matchers against it,
// terminating the test on the first failure.
func MatchRequest(t ct.TestLike, req *http.Request, matchers ...match.Request) {
	t.Helper()
	if err := should.MatchRequest(req, matchers...); err != nil {
		ct.Fatalf(t, err.Error())
	}
}

// MatchJSONBytes evaluates a Shape against a raw json byte slice, terminating
// the test on a mismatch.
func MatchJSONBytes(t ct.TestLike, rawJson []byte, shape *match.Shape) {
	t.Helper()
	if err := should.MatchJSONBytes(rawJson, shape); err != nil {
		ct.Fatalf(t, err.Error())
	}
}

// ParseJSON will ensure that the HTTP request/response body is valid JSON, then return the body, else terminate the test.
func ParseJSON(t ct.TestLike, b io.ReadCloser) gjson.Result {
	t.Helper()
	res, err := should.ParseJSON(b)
	if err != nil {
		ct.Fatalf(t, err.Error())
	}
	return res
}

// ErrorKind ensures that err is a match.Failure of the given kind, else logs an error.
func ErrorKind(t ct.TestLike, err error, want match.Kind) {
	t.Helper()
	if err == nil {
		ct.Errorf(t, "ErrorKind: got nil error, want %s", want)
		return
	}
	if got := match.KindOf(err); got != want {
		ct.Errorf(t, "ErrorKind: got %s (%s), want %s", got, err, want)
	}
}

// Equal ensures that got==want else logs an error.
// The 'msg' is displayed with the error to provide extra context.
func Equal[V comparable](t ct.TestLike, got, want V, msg string) {
	t.Helper()
	if got != want {
		ct.Errorf(t, "Equal %s: got '%v' want '%v'", msg, got, want)
	}
}

// NotEqual ensures that got!=want else logs an error.
// The 'msg' is displayed with the error to provide extra context.
func NotEqual[V comparable](t ct.TestLike, got, want V, msg string) {
	t.Helper()
	if got == want {
		ct.Errorf(t, "NotEqual %s: got '%v', want '%v'", msg, got, want)
	}
}
