package live

import "context"

// Delivery is one inbound MESSAGE frame.
type Delivery struct {
	Subscription string
	Destination  string
	Body         []byte
}

// Conn is an established pub/sub connection. Subscribe, Unsubscribe and
// Publish may be called concurrently with Receive.
type Conn interface {
	// Subscribe starts delivery of destination under the given id.
	Subscribe(id, destination string) error
	// Unsubscribe stops delivery for the id.
	Unsubscribe(id string) error
	// Publish sends body to destination without waiting for acknowledgment.
	Publish(destination string, body []byte) error
	// Receive blocks until the next delivery. Any error means the
	// connection is gone.
	Receive() (Delivery, error)
	// Close deactivates the connection.
	Close() error
}

// Dialer establishes connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
