package client

// EventType represents the type of client event
type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypeConnected
	EventTypeDisconnected
	// EventTypeNewMessages means a block touched message accounts
	EventTypeNewMessages
	EventTypeError
)

func (t EventType) String() string {
	switch t {
	case EventTypeConnected:
		return "connected"
	case EventTypeDisconnected:
		return "disconnected"
	case EventTypeNewMessages:
		return "new_messages"
	case EventTypeError:
		return "error"
	default:
		return "unknown"
	}
}

// Event represents a client event that can be sent to the UI
type Event struct {
	Type  EventType
	Slot  uint64
	Error error
}
