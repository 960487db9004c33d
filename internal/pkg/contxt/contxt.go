package contxt

import (
	"context"
	"os"
	"time"
)

// WithTimeout bounds a single vendor call or sink publish. Setting CONTEXT_TEST disables the
// deadline so tests stepping through a debugger are not cut short.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if os.Getenv("CONTEXT_TEST") != "" || timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
