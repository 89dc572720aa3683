package mock_test

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/wirematch/wirematch/match"
	"github.com/wirematch/wirematch/mock"
	"github.com/wirematch/wirematch/must"
)

// recorder implements ct.TestLike so failure paths can be asserted on without
// failing the real test.
type recorder struct {
	errors []string
	fatals []string
}

func (r *recorder) Helper() {}
func (r *recorder) Logf(msg string, args ...interface{}) {}
func (r *recorder) Error(args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprint(args...))
}
func (r *recorder) Errorf(msg string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(msg, args...))
}
func (r *recorder) Fatalf(msg string, args ...interface{}) {
	r.fatals = append(r.fatals, fmt.Sprintf(msg, args...))
}
func (r *recorder) Failed() bool { return len(r.errors)+len(r.fatals) > 0 }
func (r *recorder) Name() string { return "recorder" }

func TestTransportRespondsCannedResponse(t *testing.T) {
	tr := mock.NewTransport(t)
	tr.Expect("GET", "/widgets/{id}").
		RespondWith(200).
		RespondHeader("X-Request-ID", "abc").
		RespondJSONSet("id", "w1")
	defer tr.Verify(t)

	res, err := tr.Client().Get("https://example.test/widgets/42")
	must.NotError(t, "GET /widgets/42", err)
	must.Equal(t, res.StatusCode, 200, "status code")
	must.Equal(t, res.Header.Get("X-Request-ID"), "abc", "response header")
	must.Equal(t, res.Header.Get("Content-Type"), "application/json", "content type")

	body := must.ParseJSON(t, res.Body)
	must.Equal(t, body.Get("id").Str, "w1", "response body id")
}

func TestTransportFirstMatchWins(t *testing.T) {
	tr := mock.NewTransport(t)
	tr.Expect("GET", "/things").RespondWith(201)
	second := tr.Expect("GET", "/things").RespondWith(202)

	res, err := tr.Client().Get("https://example.test/things")
	must.NotError(t, "GET /things", err)
	must.Equal(t, res.StatusCode, 201, "status code")
	must.Equal(t, second.Hits(), 0, "second expectation hits")
}

func TestTransportTriesExpectationsInOrder(t *testing.T) {
	tr := mock.NewTransport(t)
	tr.Expect("POST", "/widgets").
		Match(match.JSONBody(match.Object().WithProperty("value", match.EqualTo(1)).Build())).
		RespondWith(201)
	tr.Expect("POST", "/widgets").
		Match(match.JSONBody(match.Object().WithProperty("value", match.EqualTo(0)).Build())).
		RespondWith(202)

	res, err := tr.Client().Post("https://example.test/widgets", "application/json", strings.NewReader(`{"value": 0}`))
	must.NotError(t, "POST /widgets", err)
	must.Equal(t, res.StatusCode, 202, "status code")
}

func TestTransportNoExpectations(t *testing.T) {
	tr := mock.NewTransport(t)
	tr.UnexpectedRequestsAreErrors = false

	_, err := tr.Client().Get("https://example.test/nothing")
	if err == nil {
		t.Fatalf("expected dispatch error")
	}
	var unmatched *mock.ExpectationsError
	if !errors.As(err, &unmatched) {
		t.Fatalf("expected ExpectationsError, got %T: %s", err, err)
	}
	if !strings.Contains(unmatched.Error(), "no expectations registered") {
		t.Fatalf("unexpected message: %s", unmatched)
	}
}

func TestTransportNoMatchReportsEveryFailure(t *testing.T) {
	tr := mock.NewTransport(t)
	tr.UnexpectedRequestsAreErrors = false
	tr.Expect("POST", "/widgets")
	tr.Expect("GET", "/widgets").Match(match.Authenticated(nil))

	_, err := tr.Client().Get("https://example.test/widgets")
	var unmatched *mock.ExpectationsError
	if !errors.As(err, &unmatched) {
		t.Fatalf("expected ExpectationsError, got %T: %s", err, err)
	}
	must.Equal(t, len(unmatched.Failures), 2, "failure count")
	if !strings.Contains(unmatched.Error(), "method GET does not match POST") {
		t.Fatalf("missing method failure: %s", unmatched)
	}
	if !strings.Contains(unmatched.Error(), "no Authorization header") {
		t.Fatalf("missing matcher failure: %s", unmatched)
	}
}

func TestTransportPathPattern(t *testing.T) {
	tr := mock.NewTransport(t)
	tr.UnexpectedRequestsAreErrors = false
	tr.Expect("GET", "/widgets/{id}").RespondWith(200)

	res, err := tr.Client().Get("https://example.test/widgets/42")
	must.NotError(t, "matching path", err)
	must.Equal(t, res.StatusCode, 200, "status code")

	_, err = tr.Client().Get("https://example.test/gadgets/42")
	if err == nil {
		t.Fatalf("expected path mismatch")
	}
}

func TestTransportUnexpectedRequestFailsTest(t *testing.T) {
	rec := &recorder{}
	tr := mock.NewTransport(rec)

	req := httptest.NewRequest("GET", "https://example.test/nothing", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("expected dispatch error")
	}
	must.Equal(t, len(rec.errors), 1, "recorded test errors")
}

func TestTransportMatcherChainFailFast(t *testing.T) {
	tr := mock.NewTransport(t)
	tr.UnexpectedRequestsAreErrors = false
	tr.Expect("POST", "/widgets").Match(
		match.NoContent(),
		match.Authenticated(nil),
	)

	_, err := tr.Client().Post("https://example.test/widgets", "application/json", strings.NewReader(`{}`))
	var unmatched *mock.ExpectationsError
	if !errors.As(err, &unmatched) {
		t.Fatalf("expected ExpectationsError, got %T: %s", err, err)
	}
	// the first matcher's failure aborts the chain; the second never runs
	if !strings.Contains(unmatched.Error(), "expected absence") {
		t.Fatalf("missing first failure: %s", unmatched)
	}
	if strings.Contains(unmatched.Error(), "no Authorization header") {
		t.Fatalf("chain did not fail fast: %s", unmatched)
	}
}

func TestTransportRespondJSON(t *testing.T) {
	tr := mock.NewTransport(t)
	tr.Expect("GET", "/widgets").RespondJSON(map[string]interface{}{
		"widgets": []string{"a", "b"},
	})

	res, err := tr.Client().Get("https://example.test/widgets")
	must.NotError(t, "GET /widgets", err)
	body := must.ParseJSON(t, res.Body)
	must.Equal(t, body.Get("widgets.#").Int(), int64(2), "widget count")
}

func TestVerify(t *testing.T) {
	rec := &recorder{}
	tr := mock.NewTransport(t)
	tr.Expect("GET", "/hit").RespondWith(200)
	tr.Expect("GET", "/never").RespondWith(200)

	_, err := tr.Client().Get("https://example.test/hit")
	must.NotError(t, "GET /hit", err)

	tr.Verify(rec)
	must.Equal(t, len(rec.errors), 1, "unsatisfied expectations")
	if !strings.Contains(rec.errors[0], "/never") {
		t.Fatalf("unexpected verify error: %s", rec.errors[0])
	}
}

func TestTransportLogsMatchAttempts(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	tr := mock.NewTransport(t)
	tr.Logger = logger
	tr.Expect("POST", "/widgets")
	tr.Expect("GET", "/widgets").RespondWith(200)

	_, err := tr.Client().Get("https://example.test/widgets")
	must.NotError(t, "GET /widgets", err)

	must.Equal(t, len(hook.Entries), 2, "log entries")
	must.Equal(t, hook.Entries[0].Message, "expectation rejected", "first attempt")
	must.Equal(t, hook.Entries[1].Message, "expectation matched", "second attempt")
}

func TestTransportConcurrentDispatch(t *testing.T) {
	tr := mock.NewTransport(t)
	e := tr.Expect("GET", "/w").RespondWith(200)
	cli := tr.Client()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := cli.Get("https://example.test/w")
			if err != nil {
				t.Errorf("concurrent GET: %s", err)
				return
			}
			res.Body.Close()
		}()
	}
	wg.Wait()
	must.Equal(t, e.Hits(), 8, "hit count")
}
