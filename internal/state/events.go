package state

import (
	"fmt"

	"github.com/lawnchairsociety/xianmud/internal/logger"
)

// Event types published by the Manager.
const (
	EventContextChanged      = "context_changed"
	EventFlagChanged         = "flag_changed"
	EventLocationChanged     = "location_changed"
	EventPlayerChanged       = "player_changed"
	EventAchievementUnlocked = "achievement_unlocked"
	EventCombatStarted       = "combat_started"
	EventCombatEnded         = "combat_ended"
	EventNPCAdded            = "npc_added"
	EventNPCRemoved          = "npc_removed"
	EventRelationshipChanged = "relationship_changed"
	EventQuestAdded          = "quest_added"
	EventQuestUpdated        = "quest_updated"
	EventQuestCompleted      = "quest_completed"
	EventStateLoaded         = "state_loaded"
	EventStatisticChanged    = "statistic_changed"
)

// Context change actions carried in the "action" field of EventContextChanged.
const (
	ActionPush  = "push"
	ActionPop   = "pop"
	ActionClear = "clear"
)

// Event is a state change notification.
type Event struct {
	Type string
	Data map[string]any
}

// Listener receives events synchronously on the mutating goroutine.
type Listener func(Event)

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// listeners is a per event type registry that keeps registration order.
type listeners struct {
	next    ListenerID
	byEvent map[string][]listenerEntry
}

func (l *listeners) add(eventType string, fn Listener) ListenerID {
	if l.byEvent == nil {
		l.byEvent = make(map[string][]listenerEntry)
	}
	l.next++
	l.byEvent[eventType] = append(l.byEvent[eventType], listenerEntry{id: l.next, fn: fn})
	return l.next
}

func (l *listeners) remove(eventType string, id ListenerID) bool {
	entries := l.byEvent[eventType]
	for i, e := range entries {
		if e.id == id {
			l.byEvent[eventType] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *listeners) publish(eventType string, data map[string]any) {
	entries := l.byEvent[eventType]
	if len(entries) == 0 {
		return
	}
	ev := Event{Type: eventType, Data: data}
	for _, e := range entries {
		invoke(e, ev)
	}
}

func invoke(e listenerEntry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("State listener failed",
				"event", ev.Type,
				"listener", e.id,
				"error", fmt.Sprint(r))
		}
	}()
	e.fn(ev)
}
