package algorithm

// EventType is the type of registry event.
type EventType int

const (
	// EventRegistered is emitted when an algorithm is registered.
	EventRegistered EventType = iota
	// EventUnregistered is emitted when an algorithm is removed.
	EventUnregistered
	// EventCurrentChanged is emitted when the current selection for a kind
	// changes, including the fallback after an unregistration.
	EventCurrentChanged
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventUnregistered:
		return "unregistered"
	case EventCurrentChanged:
		return "currentChanged"
	default:
		return "unknown"
	}
}

// Event describes one registry state transition.
type Event struct {
	Type EventType
	Kind Kind
	ID   string
}

// EventHandler reacts to registry events. Handlers must not call back into
// the registry; panics in handlers are recovered.
type EventHandler func(event Event)
