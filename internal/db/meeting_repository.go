package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sevaro/leadline/internal/models"
)

// Meeting repository errors.
var ErrMeetingNotFound = errors.New("meeting not found")

// MeetingRepository handles meeting persistence and the meeting due
// query.
type MeetingRepository struct {
	db *DB
}

// NewMeetingRepository creates a new MeetingRepository.
func NewMeetingRepository(db *DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create inserts a new meeting. A missing id is generated; a missing
// status defaults to scheduled.
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.Status == "" {
		meeting.Status = models.MeetingStatusScheduled
	}
	if err := meeting.Validate(); err != nil {
		return err
	}

	if meeting.ID == "" {
		meeting.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	var attendeesJSON *string
	if meeting.Attendees != nil {
		data, err := json.Marshal(meeting.Attendees)
		if err != nil {
			return fmt.Errorf("failed to marshal attendees: %w", err)
		}
		s := string(data)
		attendeesJSON = &s
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meetings (
			id, lead_id, title, scheduled_at, attendees_json, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		meeting.ID,
		meeting.LeadID,
		meeting.Title,
		timeToString(meeting.ScheduledAt),
		attendeesJSON,
		string(meeting.Status),
		timeToString(meeting.CreatedAt),
		timeToString(meeting.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert meeting: %w", err)
	}
	return nil
}

// Get retrieves a meeting by id.
func (r *MeetingRepository) Get(ctx context.Context, id string) (*models.Meeting, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, lead_id, title, scheduled_at, attendees_json, status,
		       created_at, updated_at
		FROM meetings WHERE id = ?
	`, id)
	return scanMeeting(row)
}

// UpdateStatus changes a meeting's status.
func (r *MeetingRepository) UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown meeting status %q", status)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE meetings SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), timeToString(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to update meeting status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

// DueMeetings returns scheduled meetings whose start time has arrived
// and is no more than window in the past. A meeting outside the window
// drops out of the due set on its own.
func (r *MeetingRepository) DueMeetings(ctx context.Context, now time.Time, window time.Duration) ([]models.DueMeeting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lead_id, title, scheduled_at, attendees_json
		FROM meetings
		WHERE status = 'scheduled'
		  AND scheduled_at <= ?
		  AND scheduled_at > ?
		ORDER BY scheduled_at
	`, timeToString(now), timeToString(now.Add(-window)))
	if err != nil {
		return nil, fmt.Errorf("failed to query due meetings: %w", err)
	}
	defer rows.Close()

	var meetings []models.DueMeeting
	for rows.Next() {
		var (
			meeting       models.DueMeeting
			scheduledAt   string
			attendeesJSON sql.NullString
		)
		if err := rows.Scan(&meeting.ID, &meeting.LeadID, &meeting.Title, &scheduledAt, &attendeesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan due meeting: %w", err)
		}
		meeting.ScheduledAt = parseTime(scheduledAt)
		meeting.Attendees = decodeAttendees(attendeesJSON)
		meetings = append(meetings, meeting)
	}
	return meetings, rows.Err()
}

func decodeAttendees(attendeesJSON sql.NullString) []string {
	if !attendeesJSON.Valid || attendeesJSON.String == "" {
		return []string{}
	}
	var attendees []string
	if err := json.Unmarshal([]byte(attendeesJSON.String), &attendees); err != nil || attendees == nil {
		return []string{}
	}
	return attendees
}

func scanMeeting(row rowScanner) (*models.Meeting, error) {
	var (
		meeting       models.Meeting
		scheduledAt   string
		attendeesJSON sql.NullString
		status        string
		createdAt     string
		updatedAt     string
	)
	err := row.Scan(
		&meeting.ID,
		&meeting.LeadID,
		&meeting.Title,
		&scheduledAt,
		&attendeesJSON,
		&status,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan meeting: %w", err)
	}

	meeting.ScheduledAt = parseTime(scheduledAt)
	meeting.Attendees = decodeAttendees(attendeesJSON)
	meeting.Status = models.MeetingStatus(status)
	meeting.CreatedAt = parseTime(createdAt)
	meeting.UpdatedAt = parseTime(updatedAt)
	return &meeting, nil
}
