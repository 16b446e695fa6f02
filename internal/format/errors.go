package format

import "fmt"

// Fatalf stops the allocator after an unrecoverable condition: a failed
// system call, corrupted metadata, or a counter underflow. The panic value is
// an error wrapping err so callers that recover can match it with errors.Is.
func Fatalf(err error, format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{err}, args...)...))
}
