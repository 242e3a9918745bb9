package live

import "github.com/hay-kot/huddle/internal/core/chat"

// State is the connection state of a Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Event is emitted on the Manager's event channel.
type Event interface {
	isEvent()
}

// MessageEvent carries an inbound chat message. Message.RoomID is the room
// whose topic delivered it.
type MessageEvent struct {
	Message chat.Message
}

// StatusEvent reports a connection state change. Err is set when the change
// was caused by a failure.
type StatusEvent struct {
	State State
	Err   error
}

// SubscriptionErrorEvent reports a failed subscribe. Err matches
// chat.ErrSubscription.
type SubscriptionErrorEvent struct {
	RoomID chat.RoomID
	Err    error
}

func (MessageEvent) isEvent()           {}
func (StatusEvent) isEvent()            {}
func (SubscriptionErrorEvent) isEvent() {}
