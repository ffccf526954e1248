package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened to a category log.
type EventType string

const (
	EventEntryAppended    EventType = "entry.appended"
	EventCategoryCleared  EventType = "category.cleared"
	EventSnapshotImported EventType = "snapshot.imported"
)

// EntryEvent tells external chart renderers that a category log changed.
// It carries the new log length only; consumers re-read the log.
type EntryEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Category  string    `json:"category"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryEvent creates an event with a fresh ID
func NewEntryEvent(eventType EventType, category string, count int) *EntryEvent {
	return &EntryEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Category:  category,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EntryEventFromJSON decodes an event
func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var ev EntryEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
