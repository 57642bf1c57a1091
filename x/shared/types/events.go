package types

import "sync"

// Attribute is a key/value pair attached to an Event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is emitted by keepers on every state change and surfaces in the
// transaction receipt.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

func NewAttribute(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func NewEvent(ty string, attrs ...Attribute) Event {
	return Event{Type: ty, Attributes: attrs}
}

// Attribute returns the value of the first attribute named key.
func (e Event) Attribute(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// EventManager collects events emitted during one execution.
type EventManager struct {
	mu     sync.Mutex
	events []Event
}

func NewEventManager() *EventManager {
	return &EventManager{}
}

func (em *EventManager) EmitEvent(event Event) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.events = append(em.events, event)
}

func (em *EventManager) EmitEvents(events []Event) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.events = append(em.events, events...)
}

func (em *EventManager) Events() []Event {
	em.mu.Lock()
	defer em.mu.Unlock()
	out := make([]Event, len(em.events))
	copy(out, em.events)
	return out
}
