package binding

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/Iron-Ham/svcbind/internal/errors"
	"github.com/Iron-Ham/svcbind/internal/event"
	"github.com/Iron-Ham/svcbind/internal/logging"
)

// Coordinator owns the published slot and the rule under which it is set,
// cleared, or reconfigured. It is safe for concurrent use.
type Coordinator struct {
	provider ContextProvider
	logger   *logging.Logger
	bus      *event.Bus
	clock    clockwork.Clock

	started atomic.Bool

	// mu serializes every re-evaluation of the publish rule and guards the
	// fields below. It is the only path that writes slot.
	mu       sync.Mutex
	bound    ClientService
	startCtx HostContext

	slot *Slot
}

// Snapshot is a consistent read of the coordinator state.
type Snapshot struct {
	State       State
	BoundID     string
	PublishedID string
	Generation  uint64
	Repository  string // Repository captured at the current start
	MetaStore   string // MetaStore captured at the current start
}

// New creates a Coordinator in StateIdle with an empty slot.
func New(provider ContextProvider, opts ...Option) (*Coordinator, error) {
	if provider == nil {
		return nil, errors.NewValidationError("context provider is required").WithField("provider")
	}

	cfg := coordinatorConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}
	if cfg.clock == nil {
		cfg.clock = clockwork.NewRealClock()
	}

	return &Coordinator{
		provider: provider,
		logger:   cfg.logger.WithComponent("binding"),
		bus:      cfg.bus,
		clock:    cfg.clock,
		slot:     newSlot(),
	}, nil
}

// Slot returns the published slot for the connection router.
func (c *Coordinator) Slot() *Slot {
	return c.slot
}

// Started reports whether the host is in its started phase.
func (c *Coordinator) Started() bool {
	return c.started.Load()
}

// State returns the current composite state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stateOf(c.started.Load(), c.bound != nil)
}

// Snapshot returns the current state, bound service and publication read
// under the coordinator lock.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	pub := c.slot.Snapshot()
	return Snapshot{
		State:       stateOf(c.started.Load(), c.bound != nil),
		BoundID:     serviceID(c.bound),
		PublishedID: serviceID(pub.Service),
		Generation:  pub.Generation,
		Repository:  c.startCtx.RepositoryName(),
		MetaStore:   c.startCtx.MetaStoreName(),
	}
}

// Bind records svc as the bound service, replacing any prior one, and
// re-evaluates the publish rule. While started, the host context is fetched
// fresh from the provider; if that fetch fails the context captured at
// start is attached instead. A nil svc is treated as Unbind.
//
// The provider is consulted before c.mu is taken, so it may read the
// coordinator's state.
func (c *Coordinator) Bind(svc ClientService) {
	if svc == nil {
		c.Unbind(nil)
		return
	}

	fresh, fetched := c.fetchBindContext()

	c.mu.Lock()
	replaced := serviceID(c.bound)
	c.bound = svc
	pub := c.reevaluateLocked(func() HostContext {
		if fetched {
			return fresh
		}
		return c.startCtx
	})
	state := stateOf(c.started.Load(), true)
	c.mu.Unlock()

	l := c.logger.WithService(svc.ID())
	if replaced != "" && replaced != svc.ID() {
		l.Info("bound service replaced", "replaced_id", replaced)
	} else {
		l.Info("service bound")
	}

	c.emit(event.NewBoundEvent(svc.ID(), replaced))
	c.emitSlot(pub, state)
}

// Unbind clears the bound service and re-evaluates, which always clears the
// slot. svc is not compared against the bound service: any Unbind clears.
func (c *Coordinator) Unbind(svc ClientService) {
	c.mu.Lock()
	cleared := serviceID(c.bound)
	c.bound = nil
	pub := c.reevaluateLocked(nil)
	state := stateOf(c.started.Load(), false)
	c.mu.Unlock()

	requested := serviceID(svc)
	if requested != "" && cleared != "" && requested != cleared {
		// Single-service assumption: revisit if multiple services can bind.
		c.logger.Warn("unbind cleared a different service than requested",
			"requested_id", requested,
			"cleared_id", cleared)
	} else {
		c.logger.Info("service unbound", "service_id", cleared)
	}

	c.emit(event.NewUnboundEvent(requested, cleared))
	c.emitSlot(pub, state)
}

// OnStart fetches the host context and starts the coordinator with it.
// If the host cannot supply its context a *errors.LifecycleError wrapping
// errors.ErrContextUnavailable is returned and the coordinator stays not
// started, so a later call may retry. A start while already started is a
// no-op and does not consult the provider.
func (c *Coordinator) OnStart(ctx context.Context) error {
	if c.started.Load() {
		return nil
	}

	hc, err := c.provider.Context(ctx)
	if err != nil {
		lerr := errors.NewLifecycleError("failed to obtain host context",
			fmt.Errorf("%w: %w", errors.ErrContextUnavailable, err)).WithListener("binding")
		c.logger.Warn("start failed", "error", lerr.Error())
		c.emit(event.NewStartFailedEvent(lerr))
		return lerr
	}

	c.OnStartWith(hc)
	return nil
}

// OnStartWith transitions not started -> started with the supplied context.
// Only the winner of concurrent or duplicate starts captures hc and
// re-evaluates; losers are no-ops. It reports whether this call won.
func (c *Coordinator) OnStartWith(hc HostContext) bool {
	c.mu.Lock()
	if !c.started.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return false
	}
	c.startCtx = hc
	pub := c.reevaluateLocked(func() HostContext { return hc })
	state := stateOf(true, c.bound != nil)
	c.mu.Unlock()

	c.logger.Info("host started",
		"repository", hc.RepositoryName(),
		"metastore", hc.MetaStoreName(),
		"state", state.String())

	c.emit(event.NewStartedEvent(hc.RepositoryName(), hc.MetaStoreName()))
	c.emitSlot(pub, state)
	return true
}

// OnExit transitions started -> not started and clears the slot regardless
// of the bound service. Duplicate exits, and an exit before any start, are
// no-ops.
func (c *Coordinator) OnExit() {
	c.mu.Lock()
	if !c.started.CompareAndSwap(true, false) {
		c.mu.Unlock()
		return
	}
	c.startCtx = HostContext{}
	pub := c.reevaluateLocked(nil)
	state := stateOf(false, c.bound != nil)
	c.mu.Unlock()

	c.logger.Info("host exited", "state", state.String())

	c.emit(event.NewExitedEvent())
	c.emitSlot(pub, state)
}

// reevaluateLocked applies the publish rule to the current values of both
// axes and writes the slot. contextFn supplies the host context to attach
// and is only called when the result publishes. c.mu must be held.
//
// Rebinding an already published service attaches the new context to it in
// place, one handle at a time. The Publication written to the slot carries
// the pair as one value; readers that need a consistent pair use
// Slot().Snapshot().Context rather than the service's own fields.
func (c *Coordinator) reevaluateLocked(contextFn func() HostContext) Publication {
	svc := c.bound
	if !c.started.Load() || svc == nil || contextFn == nil {
		return c.slot.store(nil, HostContext{}, c.clock.Now())
	}

	hc := contextFn()
	svc.SetRepository(hc.Repository)
	svc.SetMetaStore(hc.MetaStore)
	return c.slot.store(svc, hc, c.clock.Now())
}

// fetchBindContext fetches the host context for a bind while started. It
// reports false when not started or when the fetch fails, in which case the
// context captured at start is attached. c.mu must not be held.
func (c *Coordinator) fetchBindContext() (HostContext, bool) {
	if !c.started.Load() {
		return HostContext{}, false
	}
	hc, err := c.provider.Context(context.Background())
	if err != nil {
		c.logger.Warn("host context unavailable at bind, using start context",
			"error", err.Error())
		return HostContext{}, false
	}
	return hc, true
}

func (c *Coordinator) emit(e event.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func (c *Coordinator) emitSlot(pub Publication, state State) {
	c.logger.Debug("slot written",
		"generation", pub.Generation,
		"published_id", serviceID(pub.Service),
		"state", state.String())
	c.emit(event.NewSlotChangedEvent(pub.Generation, serviceID(pub.Service), state.String()))
}
