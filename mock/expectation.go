package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/mux"
	"github.com/tidwall/sjson"

	"github.com/wirematch/wirematch/ct"
	"github.com/wirematch/wirematch/match"
)

// Expectation is a configured rule the transport uses to decide whether to
// answer an outgoing request: a method, a path pattern, an ordered chain of
// matchers, and a canned response. Configure it fluently after Transport.Expect:
//
//	tr.Expect("POST", "/widgets/{id}").
//		Match(match.JSONBody(nil)).
//		RespondWith(201)
//
// Configuration is setup-phase and not safe for concurrent use; evaluation at
// dispatch time is read-only.
type Expectation struct {
	// ID identifies this expectation in logs and unmatched-request reports.
	ID string

	t        ct.TestLike
	method   string
	pattern  string
	router   *mux.Router
	matchers []match.Request

	status      int
	header      http.Header
	body        []byte
	contentType string

	hits int64
}

// Match appends matchers to the expectation's chain. Matchers are evaluated in
// attachment order and fail fast; there is no removal or reordering.
func (e *Expectation) Match(matchers ...match.Request) *Expectation {
	e.matchers = append(e.matchers, matchers...)
	return e
}

// RespondWith sets the canned response status code. The default is 200.
func (e *Expectation) RespondWith(status int) *Expectation {
	e.status = status
	return e
}

// RespondHeader adds a header to the canned response.
func (e *Expectation) RespondHeader(name, value string) *Expectation {
	if e.header == nil {
		e.header = make(http.Header)
	}
	e.header.Add(name, value)
	return e
}

// RespondRaw sets the canned response body and content type.
func (e *Expectation) RespondRaw(body []byte, contentType string) *Expectation {
	e.body = body
	e.contentType = contentType
	return e
}

// RespondJSON sets the canned response body to the JSON serialised form of obj.
func (e *Expectation) RespondJSON(obj interface{}) *Expectation {
	b, err := json.Marshal(obj)
	if err != nil {
		ct.Fatalf(e.t, "Expectation.RespondJSON failed to marshal JSON body: %s", err)
	}
	return e.RespondRaw(b, "application/json")
}

// RespondJSONSet sets one key of the canned JSON response body, starting from {}
// if no body has been configured yet. The path syntax is sjson's, so nested keys
// like "error.code" work.
func (e *Expectation) RespondJSONSet(path string, value interface{}) *Expectation {
	body := e.body
	if len(body) == 0 {
		body = []byte(`{}`)
	}
	b, err := sjson.SetBytes(body, path, value)
	if err != nil {
		ct.Fatalf(e.t, "Expectation.RespondJSONSet failed to set '%s': %s", path, err)
	}
	return e.RespondRaw(b, "application/json")
}

// Hits returns how many dispatches this expectation has answered.
func (e *Expectation) Hits() int {
	return int(atomic.LoadInt64(&e.hits))
}

// evaluate runs the expectation against one captured request. Method and path
// mismatches mean the expectation is simply not a candidate; matcher errors are
// assertion failures carrying a match.Kind.
func (e *Expectation) evaluate(captured *match.CapturedRequest, req *http.Request) error {
	if e.method != "" && !strings.EqualFold(e.method, captured.Method) {
		return fmt.Errorf("method %s does not match %s", captured.Method, e.method)
	}
	if e.router != nil {
		var rm mux.RouteMatch
		if !e.router.Match(req, &rm) {
			return fmt.Errorf("path %s does not match %s", req.URL.Path, e.pattern)
		}
	}
	for _, m := range e.matchers {
		if err := m(captured); err != nil {
			return err
		}
	}
	return nil
}

// respond builds the canned response for a matched request.
func (e *Expectation) respond(req *http.Request) *http.Response {
	atomic.AddInt64(&e.hits, 1)
	header := make(http.Header)
	for name, values := range e.header {
		header[name] = append([]string(nil), values...)
	}
	if e.contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", e.contentType)
	}
	body := append([]byte(nil), e.body...)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.status, http.StatusText(e.status)),
		StatusCode:    e.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

func (e *Expectation) describe() string {
	pattern := e.pattern
	if pattern == "" {
		pattern = "*"
	}
	return fmt.Sprintf("%s %s (%s)", e.method, pattern, e.ID)
}
