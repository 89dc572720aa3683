// package ct contains wrappers and interfaces around testing.T
//
// All wirematch functions deal with these wrapper interfaces rather than the
// literal testing.T. This allows the matchers and the mock transport to be driven
// from environments that aren't strictly `go test`, e.g. benchmarks or custom
// harnesses that want the same failure reporting.
package ct

// TestLike is an interface that testing.T satisfies. Functions in this module accept
// a TestLike interface, with the intention of a `testing.T` being passed into them.
// Benchmarks or custom harnesses can participate by implementing this interface.
type TestLike interface {
	Helper()
	Logf(msg string, args ...interface{})
	Error(args ...interface{})
	Errorf(msg string, args ...interface{})
	Fatalf(msg string, args ...interface{})
	Failed() bool
	Name() string
}

const ansiRedForeground = "\x1b[31m"
const ansiResetForeground = "\x1b[39m"

// Errorf is a wrapper around t.Errorf which prints the failing error message in red.
func Errorf(t TestLike, format string, args ...any) {
	t.Helper()
	format = ansiRedForeground + format + ansiResetForeground
	t.Errorf(format, args...)
}

// Fatalf is a wrapper around t.Fatalf which prints the failing error message in red.
func Fatalf(t TestLike, format string, args ...any) {
	t.Helper()
	format = ansiRedForeground + format + ansiResetForeground
	t.Fatalf(format, args...)
}
