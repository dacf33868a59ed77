package binding

// State is the composite binding state: the started axis combined with the
// bound axis.
type State int

const (
	// StateIdle: host not started, no service bound.
	StateIdle State = iota

	// StateBound: a service is bound but the host is not started.
	StateBound

	// StateStarted: the host is started but no service is bound.
	StateStarted

	// StateActive: the host is started and a service is bound. The bound
	// service is published.
	StateActive
)

// stateOf combines the two axes.
func stateOf(started, bound bool) State {
	switch {
	case started && bound:
		return StateActive
	case started:
		return StateStarted
	case bound:
		return StateBound
	default:
		return StateIdle
	}
}

// String returns a human-readable string for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBound:
		return "bound"
	case StateStarted:
		return "started"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Started reports whether the host lifecycle is in its started phase.
func (s State) Started() bool {
	return s == StateStarted || s == StateActive
}

// Bound reports whether a client service is bound.
func (s State) Bound() bool {
	return s == StateBound || s == StateActive
}

// Publishes reports whether the bound service is exposed in the slot.
func (s State) Publishes() bool {
	return s == StateActive
}
