package sites

import (
	"log/slog"
	"time"
)

type options struct {
	logger  *slog.Logger
	clock   func() time.Time
	metrics *Metrics
}

// Option configures a Cache or a Coordinator. Options that do not apply to
// the component being built are ignored.
type Option func(*options)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source used for UpdatedAt and sync timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMetrics enables sync metrics on a Coordinator.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.DiscardHandler),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
