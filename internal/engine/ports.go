// Package engine implements the lead follow-up reminder and escalation
// engine: polling due items, admitting at most one notification per class,
// snoozing, and escalating unanswered follow-ups to missed.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sevaro/leadline/internal/models"
)

// Engine errors.
var (
	ErrEngineAlreadyRunning = errors.New("engine already running")
	ErrEngineNotRunning     = errors.New("engine not running")
	ErrSlotEmpty            = errors.New("notification slot is empty")
)

// Item is a due lead or meeting as seen by the reconciliation loop.
type Item interface {
	// ItemID is the stable identifier, unique within a due-set snapshot.
	ItemID() string

	// DueAt is the server-side scheduled action time.
	DueAt() time.Time
}

// DueSource returns the current set of actionable items. Absence of a
// previously returned id means the item is no longer due.
type DueSource interface {
	DueReminders(ctx context.Context) ([]models.DueReminder, error)
	DueMeetings(ctx context.Context) ([]models.DueMeeting, error)
}

// LeadMutator applies remote lead mutations.
type LeadMutator interface {
	// UpdateLeadTag sets the lead's tag, preserving its other fields.
	UpdateLeadTag(ctx context.Context, id string, tag models.LeadTag) error

	// RescheduleLead moves the lead's due time to now + addMinutes.
	RescheduleLead(ctx context.Context, id string, addMinutes int) error

	// MarkRead flags the lead's reminder as read.
	MarkRead(ctx context.Context, id string) error
}

// Navigator receives navigation intents from user actions.
type Navigator interface {
	OpenLeadProfile(id string)
	OpenMeetingContext(leadID string)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
