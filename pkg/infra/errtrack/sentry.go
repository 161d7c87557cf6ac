package errtrack

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fplfetch/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Sentry reports errors to Sentry through its own hub, leaving the global hub untouched
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry creates a reporter from opts. Release defaults to the running version.
func NewSentry(opts sentry.ClientOptions) (*Sentry, error) {
	if opts.Release == "" {
		opts.Release = types.ServiceName + "@" + types.Version
	}

	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create sentry client")
	}

	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Report sends err with its goerr values attached as the "error_values" context
func (s *Sentry) Report(ctx context.Context, err error) {
	hub := s.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		if values := goerr.Values(err); len(values) > 0 {
			scope.SetContext("error_values", values)
		}
	})

	if id := hub.CaptureException(err); id != nil {
		ctxlog.From(ctx).Debug("Reported error to sentry", "event_id", *id)
	}
}

// Flush waits up to timeout for buffered events to be delivered
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
