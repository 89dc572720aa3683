package match

import (
	"errors"
	"fmt"
)

// Kind classifies why a matcher rejected a request. Tests and the mock transport
// branch on kinds via KindOf; the Message carries the expected-vs-actual detail.
type Kind int

const (
	// KindNone is the zero Kind, reported for errors that are not Failures.
	KindNone Kind = iota
	// ExpectedAbsence means something required to be missing was present.
	ExpectedAbsence
	// ExpectedPresence means something required was missing.
	ExpectedPresence
	// TypeMismatch means something was present but of the wrong kind.
	TypeMismatch
	// ValueMismatch means something was present and correctly typed, but its value differed.
	ValueMismatch
	// PredicateMismatch means a caller-supplied refinement predicate returned false.
	PredicateMismatch
)

func (k Kind) String() string {
	switch k {
	case ExpectedAbsence:
		return "expected absence"
	case ExpectedPresence:
		return "expected presence"
	case TypeMismatch:
		return "type mismatch"
	case ValueMismatch:
		return "value mismatch"
	case PredicateMismatch:
		return "predicate mismatch"
	}
	return "unknown"
}

// Failure is a single assertion failure raised by a matcher. Matchers fail fast:
// the first Failure aborts the whole match attempt, so a Failure always describes
// the first thing that differed.
type Failure struct {
	Kind    Kind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// failf builds a Failure in fmt.Errorf style.
func failf(kind Kind, format string, args ...interface{}) error {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err if it is (or wraps) a Failure, else KindNone.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindNone
}
