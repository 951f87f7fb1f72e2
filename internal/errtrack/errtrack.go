// Package errtrack reports unexpected failures to an external tracker.
package errtrack

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// Noop is used when no DSN is configured.
type Noop struct{}

func (Noop) CaptureError(context.Context, error, map[string]string) {}
func (Noop) Flush(time.Duration)                                     {}

type Sentry struct {
	hub *sentry.Hub
}

func NewSentry(dsn, environment string) (*Sentry, error) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return nil, err
	}
	return &Sentry{hub: sentry.CurrentHub()}, nil
}

// New returns a Sentry tracker when dsn is set and Noop otherwise.
func New(dsn, environment string) (Tracker, error) {
	if dsn == "" {
		return Noop{}, nil
	}
	s, err := NewSentry(dsn, environment)
	if err != nil {
		return Noop{}, err
	}
	return s, nil
}

func (t *Sentry) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if t == nil || err == nil {
		return
	}
	hub := t.hub
	if h := sentry.GetHubFromContext(ctx); h != nil {
		hub = h
	}
	hub = hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
	})
	hub.CaptureException(err)
}

func (t *Sentry) Flush(timeout time.Duration) {
	if t == nil {
		return
	}
	t.hub.Flush(timeout)
}

// OrNoop lets callers leave the tracker unset.
func OrNoop(t Tracker) Tracker {
	if t == nil {
		return Noop{}
	}
	return t
}
