// Package pubsub provides a generic publish/subscribe event system.
// The log package publishes formatted entries through a Broker[string] and
// the preview's log overlay tails them with a ContinuousListener.
package pubsub

import "time"

// EventType distinguishes the kinds of events flowing through a broker.
type EventType string

// LogEntryEvent carries one formatted log entry from the logger to any
// attached viewer.
const LogEntryEvent EventType = "log.entry"

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}
