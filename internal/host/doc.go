// Package host models the hosting application the binding coordinator
// lives in.
//
// StaticProvider supplies a repository/metastore pair built from
// configuration and can be switched unavailable to model a host that has
// lost its context.
//
// Dispatcher delivers host start and exit notifications to registered
// listeners. Start visits listeners in registration order and keeps going
// past failures; Exit visits them in reverse. Listeners whose start failed
// can be retried without re-notifying the others.
package host
