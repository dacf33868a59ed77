package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "binding.started").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers published by the binding coordinator.
const (
	TypeStarted     = "binding.started"
	TypeExited      = "binding.exited"
	TypeStartFailed = "binding.start_failed"
	TypeBound       = "binding.bound"
	TypeUnbound     = "binding.unbound"
	TypeSlotChanged = "binding.slot_changed"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Host Lifecycle Events
// -----------------------------------------------------------------------------

// StartedEvent is emitted when the started flag transitions false -> true.
type StartedEvent struct {
	baseEvent
	Repository string // Name of the repository captured at start
	MetaStore  string // Name of the metastore captured at start
}

// NewStartedEvent creates a StartedEvent.
func NewStartedEvent(repository, metaStore string) StartedEvent {
	return StartedEvent{
		baseEvent:  newBaseEvent(TypeStarted),
		Repository: repository,
		MetaStore:  metaStore,
	}
}

// ExitedEvent is emitted when the started flag transitions true -> false.
type ExitedEvent struct {
	baseEvent
}

// NewExitedEvent creates an ExitedEvent.
func NewExitedEvent() ExitedEvent {
	return ExitedEvent{baseEvent: newBaseEvent(TypeExited)}
}

// StartFailedEvent is emitted when a start could not obtain the host context.
type StartFailedEvent struct {
	baseEvent
	Err error
}

// NewStartFailedEvent creates a StartFailedEvent.
func NewStartFailedEvent(err error) StartFailedEvent {
	return StartFailedEvent{
		baseEvent: newBaseEvent(TypeStartFailed),
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Service Availability Events
// -----------------------------------------------------------------------------

// BoundEvent is emitted when a client service is bound.
type BoundEvent struct {
	baseEvent
	ServiceID  string
	ReplacedID string // ID of the service displaced by this bind, or ""
}

// NewBoundEvent creates a BoundEvent.
func NewBoundEvent(serviceID, replacedID string) BoundEvent {
	return BoundEvent{
		baseEvent:  newBaseEvent(TypeBound),
		ServiceID:  serviceID,
		ReplacedID: replacedID,
	}
}

// UnboundEvent is emitted when the bound service is cleared.
type UnboundEvent struct {
	baseEvent
	ServiceID  string // ID passed to Unbind
	ClearedID  string // ID of the service that was actually bound, or ""
	Mismatched bool   // True when a named ServiceID differs from ClearedID
}

// NewUnboundEvent creates an UnboundEvent.
func NewUnboundEvent(serviceID, clearedID string) UnboundEvent {
	return UnboundEvent{
		baseEvent:  newBaseEvent(TypeUnbound),
		ServiceID:  serviceID,
		ClearedID:  clearedID,
		Mismatched: serviceID != "" && clearedID != "" && serviceID != clearedID,
	}
}

// -----------------------------------------------------------------------------
// Slot Events
// -----------------------------------------------------------------------------

// SlotChangedEvent is emitted after every write to the published slot.
type SlotChangedEvent struct {
	baseEvent
	Generation uint64 // Monotonic write counter of the slot
	ServiceID  string // Published service ID, or "" when cleared
	State      string // Composite binding state after the write
}

// NewSlotChangedEvent creates a SlotChangedEvent.
func NewSlotChangedEvent(generation uint64, serviceID, state string) SlotChangedEvent {
	return SlotChangedEvent{
		baseEvent:  newBaseEvent(TypeSlotChanged),
		Generation: generation,
		ServiceID:  serviceID,
		State:      state,
	}
}

// Published reports whether the slot holds a service after this write.
func (e SlotChangedEvent) Published() bool {
	return e.ServiceID != ""
}
