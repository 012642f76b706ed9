package safe

import (
	errs "FeedNotify/tools/errs"

	"go.uber.org/zap"
)

// Go starts f in a goroutine that recovers and logs a panic instead of
// crashing the process.
func Go(log *zap.Logger, name string, f func()) {
	go func() {
		defer Recover(log, name)
		f()
	}()
}

// Recover is meant to be deferred. It logs a recovered panic with its stack.
func Recover(log *zap.Logger, name string) {
	if r := recover(); r != nil {
		log.Error("panic recovered", zap.String("goroutine", name), zap.Any("panic", r), zap.Stack("stack"))
	}
}

// Catch is Recover that also reports the panic through *err, for callers
// that must keep going and record the failure.
func Catch(log *zap.Logger, name string, err *error) {
	if r := recover(); r != nil {
		log.Error("panic recovered", zap.String("goroutine", name), zap.Any("panic", r), zap.Stack("stack"))
		*err = errs.ErrPanic(r)
	}
}
