// Package event provides a synchronous pub-sub bus for binding transitions.
//
// The coordinator publishes an event after each effective transition: a
// host start or exit, a failed start, a service bind or unbind, and every
// write to the published slot. Metrics and the CLI subscribe to these
// events without depending on the coordinator directly.
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine, outside the bus lock, so a handler may publish or
// subscribe without deadlocking. A panicking handler is recovered and logged
// and the remaining handlers still run.
//
// # Ordering
//
// Events from a single goroutine arrive in publish order. Events published
// concurrently from different goroutines may interleave; [SlotChangedEvent]
// carries a generation number so subscribers can discard stale deliveries.
package event
