package models

import "time"

// MeetingStatus is the lifecycle status of a meeting.
type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusJoined    MeetingStatus = "joined"
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

// Valid returns true for known statuses.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusJoined, MeetingStatusCancelled:
		return true
	}
	return false
}

// DueMeeting is a meeting projected into the due-poll contract: a
// scheduled meeting whose start time falls inside the due window.
type DueMeeting struct {
	ID          string    `json:"id"`
	LeadID      string    `json:"lead_id"`
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Attendees   []string  `json:"attendees"`
}

// ItemID returns the meeting id.
func (m DueMeeting) ItemID() string { return m.ID }

// DueAt returns the meeting's start time.
func (m DueMeeting) DueAt() time.Time { return m.ScheduledAt }
