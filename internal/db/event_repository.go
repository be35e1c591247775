package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sevaro/leadline/internal/models"
)

// EventRepository persists engine events as a session notification
// history. It satisfies events.Repository.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an event to the history log.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var payloadJSON *string
	if len(event.Payload) > 0 {
		s := string(event.Payload)
		payloadJSON = &s
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, timestamp, type, entity_type, entity_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		timeToString(event.Timestamp),
		string(event.Type),
		string(event.EntityType),
		event.EntityID,
		payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent returns the latest events, newest first.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, type, entity_type, entity_id, payload_json
		FROM events ORDER BY timestamp DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var (
			event       models.Event
			timestamp   string
			eventType   string
			entityType  string
			payloadJSON *string
		)
		if err := rows.Scan(&event.ID, &timestamp, &eventType, &entityType, &event.EntityID, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Timestamp = parseTime(timestamp)
		event.Type = models.EventType(eventType)
		event.EntityType = models.EntityType(entityType)
		if payloadJSON != nil {
			event.Payload = json.RawMessage(*payloadJSON)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
