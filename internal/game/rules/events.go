package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a match event.
type EventType string

const (
	// Turn events
	EventPhaseChanged EventType = "PHASE_CHANGED"
	EventTurnEnded    EventType = "TURN_ENDED"

	// Card events
	EventCardPlayed  EventType = "CARD_PLAYED"
	EventCardDrawn   EventType = "CARD_DRAWN"
	EventCardMoved   EventType = "CARD_MOVED"
	EventCardTrashed EventType = "CARD_TRASHED"
	EventCardKOed    EventType = "CARD_KOED"

	// DON!! events
	EventDonGained   EventType = "DON_GAINED"
	EventDonAttached EventType = "DON_ATTACHED"
	EventDonDetached EventType = "DON_DETACHED"
	EventDonPaid     EventType = "DON_PAID"

	// Battle events
	EventAttackDeclared  EventType = "ATTACK_DECLARED"
	EventBlockerDeclared EventType = "BLOCKER_DECLARED"
	EventCounterStaged   EventType = "COUNTER_STAGED"
	EventCounterUnstaged EventType = "COUNTER_UNSTAGED"
	EventBattleResolved  EventType = "BATTLE_RESOLVED"
	EventLifeTaken       EventType = "LIFE_TAKEN"
	EventLifeTrigger     EventType = "LIFE_TRIGGER"

	// Effect events
	EventPowerChanged   EventType = "POWER_CHANGED"
	EventKeywordChanged EventType = "KEYWORD_CHANGED"
	EventFlagChanged    EventType = "FLAG_CHANGED"
	EventScriptResolved EventType = "SCRIPT_RESOLVED"
	EventScriptFailed   EventType = "SCRIPT_FAILED"
	EventSelectionAsked EventType = "SELECTION_ASKED"

	// Match events
	EventMatchEnded EventType = "MATCH_ENDED"
)

// Event represents a state change that other subsystems, and the transport
// broadcast, may react to.
type Event struct {
	Type      EventType
	PlayerID  string
	TargetID  string
	SourceID  string
	Amount    int
	Data      string
	Timestamp time.Time
}

// NewEvent creates an event with the timestamp populated.
func NewEvent(eventType EventType, playerID, targetID string) Event {
	return Event{
		Type:      eventType,
		PlayerID:  playerID,
		TargetID:  targetID,
		Timestamp: time.Now(),
	}
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with
// type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	if typed, ok := bus.typedListeners[event.Type]; ok {
		for _, listener := range typed {
			listener.Callback(event)
		}
	}
}
