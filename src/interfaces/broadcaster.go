package interfaces

// -----------------------------------------------------------------------------
// IBroadcaster is the fan-out surface the shared state publishes through.
// Implemented by the websocket hub.
// -----------------------------------------------------------------------------

type IBroadcaster interface {

	// Broadcast delivers data to every current subscriber, best effort.
	// It must never block on a slow subscriber.
	Broadcast(data []byte)

	// -----------------------------------------------------------------------------

	// Count returns the number of active subscribers.
	Count() int
}
