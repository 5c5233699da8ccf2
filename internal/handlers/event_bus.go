package handlers

import (
	"sort"
	"sync"
)

const (
	// EventDeactivated carries a playback.Deactivation naming the work and handle
	// whose widget must return to idle.
	EventDeactivated = "playback.deactivated"
	// EventActiveChanged carries the new active types.ItemID, or "" when none.
	EventActiveChanged = "playback.active_changed"
	// EventVolumeChanged carries the new volume as float64.
	EventVolumeChanged = "playback.volume_changed"
)

type EventBus struct {
	subscribers map[string]map[uint64]EventHandler
	nextID      uint64
	mutex       sync.RWMutex
}

type EventHandler func(data interface{})

type Event struct {
	Type string
	Data interface{}
}

// Subscription identifies a handler registered on the bus.
type Subscription struct {
	bus       *EventBus
	eventType string
	id        uint64
}

// Unsubscribe removes the handler. It is safe to call more than once and on a
// nil subscription.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.eventType, s.id)
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]map[uint64]EventHandler),
	}
}

func (bus *EventBus) Subscribe(eventType string, handler EventHandler) *Subscription {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	bus.nextID++
	id := bus.nextID
	if bus.subscribers[eventType] == nil {
		bus.subscribers[eventType] = make(map[uint64]EventHandler)
	}
	bus.subscribers[eventType][id] = handler

	return &Subscription{bus: bus, eventType: eventType, id: id}
}

// Publish delivers data to every handler of eventType on the calling
// goroutine, in subscription order. Handlers may subscribe or unsubscribe.
func (bus *EventBus) Publish(eventType string, data interface{}) {
	bus.mutex.RLock()
	subs := bus.subscribers[eventType]
	ids := make([]uint64, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	handlers := make(map[uint64]EventHandler, len(subs))
	for id, h := range subs {
		handlers[id] = h
	}
	bus.mutex.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if !bus.has(eventType, id) {
			continue
		}
		handlers[id](data)
	}
}

// Unsubscribe drops every handler of eventType.
func (bus *EventBus) Unsubscribe(eventType string) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	delete(bus.subscribers, eventType)
}

func (bus *EventBus) Count(eventType string) int {
	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	return len(bus.subscribers[eventType])
}

func (bus *EventBus) has(eventType string, id uint64) bool {
	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	_, ok := bus.subscribers[eventType][id]
	return ok
}

func (bus *EventBus) remove(eventType string, id uint64) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	subs := bus.subscribers[eventType]
	delete(subs, id)
	if len(subs) == 0 {
		delete(bus.subscribers, eventType)
	}
}
