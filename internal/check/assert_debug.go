//go:build debug

package check

import "fmt"

// Assert panics when cond is false. Compiled out of release builds.
func Assert(cond bool, msg string) {
	if !cond {
		panic("invariant violated: " + msg)
	}
}

// Assertf panics when cond is false, with a formatted message. Compiled out of release builds.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("invariant violated: " + fmt.Sprintf(format, args...))
	}
}
