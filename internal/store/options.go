package store

import "auth-service/backend/internal/platform/clock"

// Option configures a Store.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock repositories use for server-side timestamps such as a session's
// updated_at on revocation. Defaults to the system clock.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		if clk != nil {
			o.clock = clk
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
