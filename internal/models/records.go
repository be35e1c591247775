package models

import "time"

// Lead is the stored lead record behind the due-poll contract. The
// engine never sees this type directly; it consumes DueReminder
// projections of it.
type Lead struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Tag        LeadTag    `json:"tag"`
	Priority   Priority   `json:"priority"`
	StageIndex int        `json:"stage_index"`
	StageCount int        `json:"stage_count"`
	FollowUpAt *time.Time `json:"follow_up_at,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Validate checks required lead fields.
func (l Lead) Validate() error {
	var errs ValidationErrors
	if l.Name == "" {
		errs.AddMessage("name", "name is required")
	}
	if !l.Tag.Valid() {
		errs.AddMessage("tag", "unknown tag")
	}
	if !l.Priority.Valid() {
		errs.AddMessage("priority", "unknown priority")
	}
	if l.StageCount < 0 || l.StageIndex < 0 {
		errs.AddMessage("stage_index", "stage values must be non-negative")
	}
	return errs.Err()
}

// Meeting is the stored meeting record behind the due-poll contract.
type Meeting struct {
	ID          string        `json:"id"`
	LeadID      string        `json:"lead_id"`
	Title       string        `json:"title"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Attendees   []string      `json:"attendees"`
	Status      MeetingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Validate checks required meeting fields.
func (m Meeting) Validate() error {
	var errs ValidationErrors
	if m.LeadID == "" {
		errs.AddMessage("lead_id", "lead_id is required")
	}
	if m.Title == "" {
		errs.AddMessage("title", "title is required")
	}
	if m.ScheduledAt.IsZero() {
		errs.AddMessage("scheduled_at", "scheduled_at is required")
	}
	if m.Status != "" && !m.Status.Valid() {
		errs.AddMessage("status", "unknown status")
	}
	return errs.Err()
}
