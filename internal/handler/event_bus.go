// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

// EventBus manages event distribution
type EventBus struct {
	subscribers map[model.EventType][]chan model.PrinterEvent
	all         []chan model.PrinterEvent
	events      chan model.PrinterEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
	closed      bool
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[model.EventType][]chan model.PrinterEvent),
		events:      make(chan model.PrinterEvent, 1000),
		logger:      logger,
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}

	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	for _, subs := range eb.subscribers {
		for _, s := range subs {
			close(s)
		}
	}
	for _, s := range eb.all {
		close(s)
	}
	eb.subscribers = make(map[model.EventType][]chan model.PrinterEvent)
	eb.all = nil
}

// Stop closes the bus; Start returns once queued events are delivered and
// every subscriber channel is closed
func (eb *EventBus) Stop() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.events)
}

// Publish publishes an event. It never blocks.
func (eb *EventBus) Publish(event model.PrinterEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	if eb.closed {
		return
	}

	select {
	case eb.events <- event:
	default:
		// Event bus is full
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", string(event.EventType)),
			)
		}
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan model.PrinterEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.PrinterEvent, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// SubscribeAll subscribes to every event
func (eb *EventBus) SubscribeAll() <-chan model.PrinterEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.PrinterEvent, 100)
	eb.all = append(eb.all, subscriber)
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.PrinterEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, subscriber := range eb.subscribers[event.EventType] {
		eb.deliver(subscriber, event)
	}
	for _, subscriber := range eb.all {
		eb.deliver(subscriber, event)
	}
}

func (eb *EventBus) deliver(subscriber chan model.PrinterEvent, event model.PrinterEvent) {
	select {
	case subscriber <- event:
	default:
		// Subscriber is slow, skip
	}
}
