package host

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Iron-Ham/svcbind/internal/errors"
	"github.com/Iron-Ham/svcbind/internal/logging"
)

// Listener receives host lifecycle notifications.
type Listener interface {
	OnStart(ctx context.Context) error
	OnExit()
}

type registration struct {
	name     string
	listener Listener
}

// Dispatcher delivers host lifecycle notifications to listeners.
// Notifications are serialized; listeners are called one at a time.
type Dispatcher struct {
	logger *logging.Logger

	mu        sync.Mutex
	listeners []registration
	failed    map[string]bool
	started   bool
}

// NewDispatcher creates a Dispatcher. A nil logger discards logs.
func NewDispatcher(logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Dispatcher{
		logger: logger.WithComponent("host"),
		failed: make(map[string]bool),
	}
}

// Register adds a listener under a unique name.
func (d *Dispatcher) Register(name string, l Listener) error {
	if name == "" {
		return errors.NewValidationError("listener name is required").WithField("name")
	}
	if l == nil {
		return errors.NewValidationError("listener is required").WithField("listener").WithValue(name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.listeners {
		if r.name == name {
			return errors.NewValidationError("listener already registered").
				WithField("name").WithValue(name)
		}
	}
	d.listeners = append(d.listeners, registration{name: name, listener: l})
	return nil
}

// Start notifies every listener in registration order. A failing listener
// does not prevent the rest from being notified; each failure is wrapped in
// a *errors.LifecycleError naming the listener and all are returned joined.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.started = true
	clear(d.failed)
	d.logger.Info("dispatching host start", "listeners", len(d.listeners))
	return d.startLocked(ctx, d.listeners)
}

// Retry re-notifies only the listeners whose last start failed. It is a
// no-op unless the host is started.
func (d *Dispatcher) Retry(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || len(d.failed) == 0 {
		return nil
	}

	var pending []registration
	for _, r := range d.listeners {
		if d.failed[r.name] {
			pending = append(pending, r)
		}
	}
	d.logger.Info("retrying host start", "listeners", len(pending))
	return d.startLocked(ctx, pending)
}

func (d *Dispatcher) startLocked(ctx context.Context, regs []registration) error {
	var errs []error
	for _, r := range regs {
		if err := ctx.Err(); err != nil {
			d.failed[r.name] = true
			errs = append(errs, d.listenerError(r.name, err))
			continue
		}
		if err := d.callStart(ctx, r); err != nil {
			d.failed[r.name] = true
			d.logger.Warn("listener start failed", "listener", r.name, "error", err.Error())
			errs = append(errs, d.listenerError(r.name, err))
			continue
		}
		delete(d.failed, r.name)
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) callStart(ctx context.Context, r registration) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("listener panicked: %v", p)
		}
	}()
	return r.listener.OnStart(ctx)
}

func (d *Dispatcher) listenerError(name string, err error) error {
	var lerr *errors.LifecycleError
	if errors.As(err, &lerr) && lerr.Listener == name {
		return lerr
	}
	return errors.NewLifecycleError("listener start failed", err).WithListener(name)
}

// Exit notifies every listener in reverse registration order. Exit before
// Start is a no-op.
func (d *Dispatcher) Exit() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return
	}
	d.started = false
	clear(d.failed)

	d.logger.Info("dispatching host exit", "listeners", len(d.listeners))
	for _, r := range slices.Backward(d.listeners) {
		d.callExit(r)
	}
}

func (d *Dispatcher) callExit(r registration) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("listener exit panicked", "listener", r.name, "panic", fmt.Sprint(p))
		}
	}()
	r.listener.OnExit()
}

// Started reports whether the host is started.
func (d *Dispatcher) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Failed returns the names of listeners whose last start failed, in
// registration order.
func (d *Dispatcher) Failed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var names []string
	for _, r := range d.listeners {
		if d.failed[r.name] {
			names = append(names, r.name)
		}
	}
	return names
}

// Listeners returns the registered listener names in registration order.
func (d *Dispatcher) Listeners() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, len(d.listeners))
	for i, r := range d.listeners {
		names[i] = r.name
	}
	return names
}
