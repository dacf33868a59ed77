package binding

import (
	"github.com/jonboulle/clockwork"

	"github.com/Iron-Ham/svcbind/internal/event"
	"github.com/Iron-Ham/svcbind/internal/logging"
)

type coordinatorConfig struct {
	logger *logging.Logger
	bus    *event.Bus
	clock  clockwork.Clock
}

// Option configures a Coordinator.
type Option func(*coordinatorConfig)

// WithLogger sets the logger. If nil, logs are discarded.
func WithLogger(l *logging.Logger) Option {
	return func(c *coordinatorConfig) { c.logger = l }
}

// WithBus sets the event bus transitions are published to.
// If nil, no events are published.
func WithBus(b *event.Bus) Option {
	return func(c *coordinatorConfig) { c.bus = b }
}

// WithClock sets the clock used to stamp slot publications.
// Defaults to the real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *coordinatorConfig) { c.clock = clock }
}
