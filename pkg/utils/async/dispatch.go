package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatcher runs handlers in the background and keeps track of them so that
// shutdown can wait for work in flight, such as a fetch writing the archive file.
type Dispatcher struct {
	wg       sync.WaitGroup
	reporter interfaces.ErrorReporter
}

// Option is a functional option for Dispatcher
type Option func(*Dispatcher)

// WithErrorReporter forwards handler errors and panics to r in addition to logging them
func WithErrorReporter(r interfaces.ErrorReporter) Option {
	return func(d *Dispatcher) {
		d.reporter = r
	}
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes handler in a new goroutine.
//
// The handler receives a background context carrying the ctxlog logger of ctx,
// so cancelling ctx (typically the HTTP request) does not stop it. Panics are
// recovered and logged with their stack; returned errors are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := ctxlog.With(context.Background(), ctxlog.From(ctx))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(newCtx).Error("panic in async handler",
					"recover", r,
					"stack", string(debug.Stack()),
				)
				d.report(newCtx, goerr.New("panic in async handler", goerr.V("recover", r)))
			}
		}()

		if err := handler(newCtx); err != nil {
			ctxlog.From(newCtx).Error("error in async handler", "error", err)
			d.report(newCtx, err)
		}
	}()
}

func (d *Dispatcher) report(ctx context.Context, err error) {
	if d.reporter != nil {
		d.reporter.Report(ctx, err)
	}
}

// Wait blocks until every dispatched handler has returned or ctx is done
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "background handlers still running")
	}
}
