// package match contains matchers for captured HTTP requests and JSON data.
//
// Matchers are composable functions which check the shape of an outgoing request,
// returning a golang error if a matcher fails. They are typically attached to a
// mock expectation in the following way:
//
//	transport.Expect("POST", "/widgets").Match(
//		match.Authenticated(nil),
//		match.JSONBody(match.Object().WithProperty("value", match.EqualTo(0)).Build()),
//	).RespondWith(201)
//
// Matchers have no concept of tests, and do not automatically fail tests if the
// match fails; errors they return carry a Kind describing what differed. If you
// want matches to fail a test, use the 'must' package.
package match

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

type shapeKind int

const (
	shapeAny shapeKind = iota
	shapeLiteral
	shapeObject
	shapeEach
)

// Shape is an immutable constraint tree over a JSON value. Build one via
// AnyValue, EqualTo, EachItem or Object().WithProperty(...).Build(), then
// evaluate it with Match. Evaluation is stateless and reentrant: the same Shape
// may be evaluated against many values, concurrently, with no interference.
type Shape struct {
	kind    shapeKind
	literal interface{}
	props   []property
	each    *Shape
}

type property struct {
	name  string
	shape *Shape
}

// AnyValue matches any JSON value.
func AnyValue() *Shape {
	return &Shape{kind: shapeAny}
}

// EqualTo matches a JSON value exactly equal to literal. The literal is compared
// after a JSON round-trip, so numbers, strings, booleans, nulls, maps and slices
// all compare by JSON value.
func EqualTo(literal interface{}) *Shape {
	return &Shape{kind: shapeLiteral, literal: literal}
}

// EachItem matches a JSON array in which every element satisfies sub.
func EachItem(sub *Shape) *Shape {
	if sub == nil {
		sub = AnyValue()
	}
	return &Shape{kind: shapeEach, each: sub}
}

// ObjectBuilder accumulates property constraints for an object Shape. It only
// ever appends; Build freezes the accumulated constraints into an immutable
// Shape, leaving the builder reusable.
type ObjectBuilder struct {
	props []property
}

// Object starts a builder for an object Shape.
func Object() *ObjectBuilder {
	return &ObjectBuilder{}
}

// WithProperty requires the object to contain the named property, with a value
// satisfying sub (any value if sub is nil). Constraints are ANDed in the order
// they are added. Properties not mentioned are ignored: this is a subset match,
// not an exact-shape match.
func (b *ObjectBuilder) WithProperty(name string, sub *Shape) *ObjectBuilder {
	if sub == nil {
		sub = AnyValue()
	}
	b.props = append(b.props, property{name: name, shape: sub})
	return b
}

// Build freezes the builder into an immutable object Shape.
func (b *ObjectBuilder) Build() *Shape {
	return &Shape{kind: shapeObject, props: append([]property(nil), b.props...)}
}

// Match evaluates the Shape against a JSON value, returning a Failure naming the
// offending path and the expected/actual values on the first unmet constraint.
func (s *Shape) Match(v gjson.Result) error {
	return s.match(v, "$")
}

func (s *Shape) match(v gjson.Result, path string) error {
	switch s.kind {
	case shapeLiteral:
		if !jsonDeepEqual([]byte(v.Raw), s.literal) {
			want, _ := json.Marshal(s.literal)
			return failf(ValueMismatch, "%s: got %s want %s", path, truncate(v.Raw), want)
		}
	case shapeObject:
		if !v.IsObject() {
			return failf(TypeMismatch, "%s: got %s, want an object", path, truncate(v.Raw))
		}
		for _, p := range s.props {
			pv := v.Get(gjsonEscape(p.name))
			if !pv.Exists() {
				return failf(ExpectedPresence, "%s: property '%s' missing", path, p.name)
			}
			if err := p.shape.match(pv, path+"."+p.name); err != nil {
				return err
			}
		}
	case shapeEach:
		if !v.IsArray() {
			return failf(TypeMismatch, "%s: got %s, want an array", path, truncate(v.Raw))
		}
		for i, item := range v.Array() {
			if err := s.each.match(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// gjsonEscape escapes . and * from the input so it can be used with gjson.Get
func gjsonEscape(in string) string {
	in = strings.ReplaceAll(in, ".", `\.`)
	in = strings.ReplaceAll(in, "*", `\*`)
	return in
}

func truncate(raw string) string {
	if len(raw) > 96 {
		return raw[:96] + "..."
	}
	return raw
}

// jsonDeepEqual compares raw json with a json-serializable value, seeing if they're equal.
// It forces `gotJson` through a JSON parser to ensure keys/whitespace are identical to the marshalled form of `wantValue`.
func jsonDeepEqual(gotJson []byte, wantValue interface{}) bool {
	// marshal what the test gave us
	wantBytes, _ := json.Marshal(wantValue)
	// re-marshal what the network gave us to account for key ordering
	var gotVal interface{}
	_ = json.Unmarshal(gotJson, &gotVal)
	gotBytes, _ := json.Marshal(gotVal)
	return bytes.Equal(gotBytes, wantBytes)
}
