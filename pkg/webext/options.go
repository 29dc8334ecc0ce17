package webext

import (
	"context"
	"fmt"

	"github.com/entrhq/webext/pkg/logging"
	"github.com/entrhq/webext/pkg/netutil"
)

// Logger receives diagnostics from the decorators. *logging.Logger
// implements it.
type Logger interface {
	Debugf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// PortSource yields the port for Firefox's remote debugging server. It is
// called at most once per launch.
type PortSource func(ctx context.Context) (int, error)

// StaticPort returns a PortSource that always yields port.
func StaticPort(port int) PortSource {
	return func(context.Context) (int, error) {
		return port, nil
	}
}

// FreePort is the default PortSource: a port unbound at the time of the launch.
func FreePort(ctx context.Context) (int, error) {
	return netutil.FreePort(ctx)
}

// Option configures a decorator.
type Option func(*options)

type options struct {
	port   PortSource
	logger Logger
}

func defaultOptions() *options {
	return &options{
		port:   FreePort,
		logger: logging.Default("webext"),
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithPort makes Firefox launches use a fixed remote debugging port.
// Concurrent launches from the same decorator will then collide.
func WithPort(port int) Option {
	return func(o *options) {
		o.port = StaticPort(port)
	}
}

// WithPortSource sets how Firefox launches pick their remote debugging port.
func WithPortSource(src PortSource) Option {
	return func(o *options) {
		if src != nil {
			o.port = src
		}
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l == nil {
			l = logging.Discard()
		}
		o.logger = l
	}
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid debugging server port %d", port)
	}
	return nil
}
