package observability

import "runtime/debug"

// RecoverPanic is deferred in long-lived background goroutines, such as the
// pool stats reporter, where a panic would otherwise kill the process with no
// structured record. The panic value, its stack and the goroutine's scope are
// logged at Error level; the goroutine still ends, only the process survives.
// Request-path panics are handled by the HTTP recovery middleware instead.
func RecoverPanic(logger *Logger, scope string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("scope", scope).
			WithField("stack", string(debug.Stack())).
			Error("panic recovered")
	}
}
