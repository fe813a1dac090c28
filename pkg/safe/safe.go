package safe

import (
	"log/slog"
	"runtime/debug"
)

// Run executes fn and recovers from any panic, logging the stack
// so a crashing worker never takes down the whole process.
func Run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", "safe.Run"),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	fn()
}

// RunWithComponent behaves like Run but tags the log entry with the
// caller-supplied component name.
func RunWithComponent(fn func(), component string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", component),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	fn()
}
