package service

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/models"
)

const eventBufferSize = 64

// EventBus fans successful state changes out to subscribers. Publish
// never blocks: a subscriber that stops draining its channel loses
// events rather than stalling the core.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan models.Event
	closed      bool
	log         *logrus.Entry
}

func NewEventBus(logger *logrus.Logger) *EventBus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventBus{
		log: logger.WithField("component", "events"),
	}
}

// Subscribe registers a new observer and returns its event channel.
func (eb *EventBus) Subscribe() <-chan models.Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan models.Event, eventBufferSize)
	if eb.closed {
		close(ch)
		return ch
	}
	eb.subscribers = append(eb.subscribers, ch)
	return ch
}

// Publish delivers the event to every subscriber that has room.
func (eb *EventBus) Publish(event models.Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			eb.log.WithField("type", event.Type).Warn("subscriber channel full, event dropped")
		}
	}
}

// Close shuts down all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for _, ch := range eb.subscribers {
		close(ch)
	}
	eb.subscribers = nil
}
