// Package binding coordinates the host lifecycle with client service
// availability and publishes the client service usable for local
// connections.
//
// Two independent signal sources drive a [Coordinator]:
//
//   - the host lifecycle dispatcher calls [Coordinator.OnStart] and
//     [Coordinator.OnExit];
//   - the service registry calls [Coordinator.Bind] and [Coordinator.Unbind].
//
// Either source may fire first and both may fire concurrently. The
// coordinator keeps one rule: the [Slot] holds the bound service if and
// only if the host is started and a service is bound; otherwise it holds
// nothing. Before a service is published its repository and metastore are
// attached from the host context, so readers never observe a client without
// its context.
//
// # State
//
// The two axes combine into four composite states:
//
//	             unbound        bound
//	not started  StateIdle      StateBound
//	started      StateStarted   StateActive
//
// Only [StateActive] publishes.
//
// # Concurrency
//
// Start and exit are compare-and-set transitions on the started flag, so
// duplicate or concurrent signals collapse to one effective transition.
// Every transition then re-evaluates the rule inside one critical section
// reading the current values of both axes. The slot itself is an atomic
// pointer: readers never block and never take the coordinator lock.
//
// A read of the slot is a snapshot and may be stale the instant after it
// returns.
//
// # Usage
//
//	coord, err := binding.New(provider, binding.WithLogger(logger), binding.WithBus(bus))
//	if err != nil {
//	    return err
//	}
//	coord.Bind(client)
//	if err := coord.OnStart(ctx); err != nil {
//	    // host context unavailable; local routing stays off, retry later
//	}
//	if svc := coord.Slot().Load(); svc != nil {
//	    // serve the connection in-process
//	}
package binding
