package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/utils/errutil"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
)

// Dispatcher runs handler detached from the caller
type Dispatcher func(ctx context.Context, handler func(ctx context.Context) error)

// Dispatch executes a handler function asynchronously in a new goroutine.
// The caller's cancellation does not propagate; its logger does.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := detach(ctx)

	go func() {
		run(bgCtx, handler)
	}()
}

// Inline runs handler on the calling goroutine with the same isolation as Dispatch
func Inline(ctx context.Context, handler func(ctx context.Context) error) {
	run(detach(ctx), handler)
}

func detach(ctx context.Context) context.Context {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}
	return bgCtx
}

func run(ctx context.Context, handler func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			_ = errutil.Handle(ctx, goerr.New("panic in async handler", goerr.V("panic", r)), "async handler panicked")
		}
	}()

	if err := handler(ctx); err != nil {
		_ = errutil.Handle(ctx, err, "async handler failed")
	}
}
