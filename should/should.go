// Package should contains assertions for tests, which returns an error if the assertion fails.
package should

import (
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/exp/slices"

	"github.com/wirematch/wirematch/match"
)

// Match evaluates matchers against a captured request in order, returning the
// first failure. This is the fail-fast chain the mock transport runs for each
// expectation: matcher i+1 is only reached if matcher i passed, and a failure is
// returned as a value rather than raised.
func Match(req *match.CapturedRequest, matchers ...match.Request) error {
	for _, m := range matchers {
		if err := m(req); err != nil {
			return err
		}
	}
	return nil
}

// MatchRequest snapshots the HTTP request and evaluates matchers against it,
// returning the first failure. The request body is restored after capture.
func MatchRequest(req *http.Request, matchers ...match.Request) error {
	captured, err := match.Capture(req)
	if err != nil {
		return fmt.Errorf("MatchRequest: %s", err)
	}
	return Match(captured, matchers...)
}

// ParseJSON will ensure that the HTTP request/response body is valid JSON, then return the body, else returns an error.
func ParseJSON(b io.ReadCloser) (res gjson.Result, err error) {
	body, err := io.ReadAll(b)
	if err != nil {
		return res, fmt.Errorf("ParseJSON: reading body returned %s", err)
	}
	if !gjson.ValidBytes(body) {
		return res, fmt.Errorf("ParseJSON: not valid JSON")
	}
	return gjson.ParseBytes(body), nil
}

// MatchJSONBytes evaluates a Shape against a raw json byte slice.
func MatchJSONBytes(rawJson []byte, shape *match.Shape) error {
	if !gjson.ValidBytes(rawJson) {
		return fmt.Errorf("MatchJSONBytes: rawJson is not valid JSON")
	}
	if shape == nil {
		return nil
	}
	if err := shape.Match(gjson.ParseBytes(rawJson)); err != nil {
		return fmt.Errorf("MatchJSONBytes %s with input = %v", err, gjson.ParseBytes(rawJson).Get("@pretty").String())
	}
	return nil
}

// HaveInOrder checks that the two slices match exactly, returning an error on mismatches or omissions.
func HaveInOrder[V comparable](gots []V, wants []V) error {
	if len(gots) != len(wants) {
		return fmt.Errorf("HaveInOrder: length mismatch, got %v want %v", gots, wants)
	}
	for i := range gots {
		if gots[i] != wants[i] {
			return fmt.Errorf("HaveInOrder: index %d got %v want %v", i, gots[i], wants[i])
		}
	}
	return nil
}

// ContainSubset checks that every item in smaller is in larger, returning an error if at least 1 item isn't.
// Ignores extra elements in larger. Ignores ordering.
func ContainSubset[V comparable](larger []V, smaller []V) error {
	if len(larger) < len(smaller) {
		return fmt.Errorf("ContainSubset: length mismatch, larger=%d smaller=%d", len(larger), len(smaller))
	}
	for i, item := range smaller {
		if !slices.Contains(larger, item) {
			return fmt.Errorf("ContainSubset: element not found in larger set: smaller[%d] (%v) larger=%v", i, item, larger)
		}
	}
	return nil
}
