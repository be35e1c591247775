// Package models defines the domain types shared across the engine,
// the lead store, and the API surfaces.
package models

import "time"

// LeadTag is the lifecycle tag on a lead. Tags drive both the due-poll
// query and the escalation rule: only follow_up leads escalate, and
// terminal tags drop out of the due set entirely.
type LeadTag string

const (
	LeadTagNew          LeadTag = "new"
	LeadTagNotConnected LeadTag = "not_connected"
	LeadTagFollowUp     LeadTag = "follow_up"
	LeadTagMissed       LeadTag = "missed"
	LeadTagTrending     LeadTag = "trending"
	LeadTagDropped      LeadTag = "dropped"
	LeadTagWon          LeadTag = "won"
)

// Valid returns true for known tags.
func (t LeadTag) Valid() bool {
	switch t {
	case LeadTagNew, LeadTagNotConnected, LeadTagFollowUp, LeadTagMissed,
		LeadTagTrending, LeadTagDropped, LeadTagWon:
		return true
	}
	return false
}

// Terminal returns true for tags that end a lead's pipeline journey.
// Terminal leads never appear in the due set.
func (t LeadTag) Terminal() bool {
	switch t {
	case LeadTagMissed, LeadTagDropped, LeadTagWon:
		return true
	}
	return false
}

// CanTransitionTo reports whether a tag change is allowed. New leads
// move into a contacted state first; contacted states move freely
// between each other and into terminals; terminal tags accept nothing.
func (t LeadTag) CanTransitionTo(next LeadTag) bool {
	if !t.Valid() || !next.Valid() || t == next {
		return false
	}
	if t.Terminal() {
		return false
	}
	switch t {
	case LeadTagNew:
		return next == LeadTagNotConnected || next == LeadTagFollowUp || next == LeadTagTrending
	case LeadTagNotConnected, LeadTagFollowUp, LeadTagTrending:
		return next != LeadTagNew
	}
	return false
}

// Priority orders competing due reminders.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid returns true for known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns the sort rank for a priority, lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// DueReminder is a lead projected into the due-poll contract: a
// follow-up whose scheduled time has passed and whose tag is still
// actionable.
type DueReminder struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Tag         LeadTag   `json:"tag"`
	Priority    Priority  `json:"priority"`
	StageIndex  int       `json:"stage_index"`
	StageCount  int       `json:"stage_count"`
	Read        bool      `json:"read"`
}

// ItemID returns the lead id backing the reminder.
func (r DueReminder) ItemID() string { return r.ID }

// DueAt returns when the follow-up was scheduled.
func (r DueReminder) DueAt() time.Time { return r.ScheduledAt }

// Validate checks required reminder fields.
func (r DueReminder) Validate() error {
	var errs ValidationErrors
	if r.ID == "" {
		errs.AddMessage("id", "id is required")
	}
	if !r.Tag.Valid() {
		errs.AddMessage("tag", "unknown tag")
	}
	return errs.Err()
}
