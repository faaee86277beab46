package laminar

import "fmt"

// InternalError marks a programmer-bug invariant violation (§7): a matrix
// shape mismatch, an unbalanced binding-stack push/pop, or similar. These
// are never diagnostics — they panic and are recovered only at the
// cmd/laminar process boundary.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "laminar: internal error: " + e.Msg }

// Panicf raises an InternalError with a formatted message.
func Panicf(format string, args ...any) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}
