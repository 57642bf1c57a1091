package abci

import (
	"fmt"
	"runtime/debug"

	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

// SafeExecute runs fn and turns a panic into an error. The error wraps no
// taxonomy sentinel, so it is reported as an internal, critical failure.
func SafeExecute[T any](ctx sharedtypes.Context, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Logger().Error("PANIC RECOVERED",
				"operation", operation,
				"panic", fmt.Sprintf("%v", r),
				"stack_trace", string(debug.Stack()),
			)
			ctx.EventManager().EmitEvent(
				sharedtypes.NewEvent(
					"panic_recovered",
					sharedtypes.NewAttribute("operation", operation),
					sharedtypes.NewAttribute("error", fmt.Sprintf("%v", r)),
					sharedtypes.NewAttribute("severity", SeverityCritical.String()),
				),
			)
			var zero T
			result = zero
			err = fmt.Errorf("panic in %s: %v", operation, r)
		}
	}()
	return fn()
}
