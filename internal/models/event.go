package models

import (
	"encoding/json"
	"time"
)

// EventType categorizes engine events.
type EventType string

const (
	// Reminder slot events
	EventTypeReminderAdmitted  EventType = "reminder.admitted"
	EventTypeReminderRefreshed EventType = "reminder.refreshed"
	EventTypeReminderCleared   EventType = "reminder.cleared"
	EventTypeReminderEscalated EventType = "reminder.escalated"
	EventTypeReminderSnoozed   EventType = "reminder.snoozed"
	EventTypeReminderViewed    EventType = "reminder.viewed"
	EventTypeReminderDismissed EventType = "reminder.dismissed"

	// Meeting slot events
	EventTypeMeetingAdmitted  EventType = "meeting.admitted"
	EventTypeMeetingCleared   EventType = "meeting.cleared"
	EventTypeMeetingJoined    EventType = "meeting.joined"
	EventTypeMeetingDismissed EventType = "meeting.dismissed"

	// Failure events
	EventTypeActionFailed EventType = "action.failed"
	EventTypePollFailed   EventType = "poll.failed"
)

// EntityType identifies what kind of entity an event relates to.
type EntityType string

const (
	EntityTypeLead    EntityType = "lead"
	EntityTypeMeeting EntityType = "meeting"
	EntityTypeEngine  EntityType = "engine"
)

// Event is a single engine notification delivered to subscribers.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AdmittedPayload is the payload for reminder.admitted and
// meeting.admitted events.
type AdmittedPayload struct {
	AdmittedAt time.Time `json:"admitted_at"`
}

// EscalatedPayload is the payload for reminder.escalated events.
type EscalatedPayload struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Overdue     string    `json:"overdue"`
}

// SnoozedPayload is the payload for reminder.snoozed events.
type SnoozedPayload struct {
	Minutes int `json:"minutes"`
}

// FailedPayload is the payload for action.failed and poll.failed events.
type FailedPayload struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}
