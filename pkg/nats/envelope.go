package nats

import "strings"

const (
	// StreamName is the JetStream stream holding every event.
	StreamName    = "EVENTS"
	subjectPrefix = "events."
)

// Subject returns the subject an event type is published on.
func Subject(eventType string) string {
	return subjectPrefix + eventType
}

func typeOf(subject string) string {
	return strings.TrimPrefix(subject, subjectPrefix)
}
