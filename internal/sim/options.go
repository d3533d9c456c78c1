package sim

import (
	"io"
	"log/slog"

	"github.com/cxd309/vds-engine/internal/telemetry"
)

type options struct {
	logger  *slog.Logger
	maxStep float64
	sinks   []telemetry.Sink
}

// Option configures a Vehicle or a Runner.
type Option func(*options)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxStep bounds a single tick in seconds.
func WithMaxStep(dt float64) Option {
	return func(o *options) {
		if dt > 0 {
			o.maxStep = dt
		}
	}
}

// WithSink adds a telemetry sink to a Runner.
func WithSink(s telemetry.Sink) Option {
	return func(o *options) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxStep: DefaultMaxStep,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
