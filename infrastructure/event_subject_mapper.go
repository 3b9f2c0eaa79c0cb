package infrastructure

import (
	"giftrank/events"
)

// DomainEventStream is the JetStream stream holding every giftrank subject
const DomainEventStream = "giftrank_events"

// EventSubjectMapper maps domain event types to NATS subjects
type EventSubjectMapper struct {
	prefix   string
	subjects map[events.EventType]string
}

// NewEventSubjectMapper creates the default mapping under the "giftrank" prefix
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{
		prefix: "giftrank",
		subjects: map[events.EventType]string{
			events.EventTypePaymentSettled:      "giftrank.payment.settled",
			events.EventTypeRankingRefreshed:    "giftrank.ranking.refreshed",
			events.EventTypeCheckoutLinkCreated: "giftrank.checkout.link_created",
		},
	}
}

// MapEventToSubject returns the subject for an event, falling back to prefix.unknown
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := m.subjects[event.Type()]; ok {
		return subject
	}
	return m.prefix + ".unknown"
}

// EventTypes returns every mapped event type
func (m *EventSubjectMapper) EventTypes() []events.EventType {
	types := make([]events.EventType, 0, len(m.subjects))
	for t := range m.subjects {
		types = append(types, t)
	}
	return types
}

// StreamSubjects returns the wildcard subject covering every mapped subject
func (m *EventSubjectMapper) StreamSubjects() []string {
	return []string{m.prefix + ".>"}
}
