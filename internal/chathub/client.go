package chathub

// Client is the interface for one admitted connection. It abstracts the
// underlying transport so that the registry and router can address
// connections uniformly.
type Client interface {
	// ID returns the opaque connection handle. It is unique per connection,
	// not per user: one user may hold several connections.
	ID() string
	// Deliver queues an encoded event for the connection without blocking.
	// It reports false when the event was dropped because the connection is
	// closed or its send buffer is full.
	Deliver(payload []byte) bool
	// Close stops further deliveries and releases the transport.
	Close()
}
