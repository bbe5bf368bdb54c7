package bus

import "time"

// EventBus is an in-process pub/sub bus used to fan world notifications out
// to loggers, the control endpoint and tests.
//
// Delivery is synchronous: Publish runs handlers on the caller goroutine, so
// handlers must stay cheap. Handler errors are joined and returned.
type EventBus interface {
	// Publish delivers the event to subscribers of event.Type() and to
	// wildcard subscribers.
	Publish(event Event) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is ignored.
	Unsubscribe(Subscription) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// Metrics is only populated while at least one observer is registered.
	Metrics() Metrics
}

// WildcardType subscribes a handler to every event type.
const WildcardType = "*"

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type EventHandler func(event Event) error

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is told about every delivery after the handlers ran.
type Observer interface {
	OnDelivered(event Event, handlers int, err error, took time.Duration)
}

type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
