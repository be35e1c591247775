package engine

import (
	"context"
	"fmt"

	"github.com/sevaro/leadline/internal/models"
)

// The dispatcher translates user intent into remote mutations and local
// slot transitions. Network-backed actions are fire-and-await: local
// state only changes after the remote call succeeds. Dismiss and
// view/join clear the slot purely locally.

// dismiss clears the visible slot locally only. It never mutates remote
// state and never removes the id from the ledger, so the item will not
// reappear this session until the server itself drops it from the due
// set. Dismissing an empty slot is a no-op.
func (c *controller) dismiss(ctx context.Context, eventType models.EventType) {
	c.mu.Lock()
	if !c.slot.Visible() {
		c.mu.Unlock()
		return
	}
	id := c.slot.Current().ItemID()
	c.slot.Clear()
	c.resetEscalationLocked("")
	c.queueLocked(eventType, id, nil)
	c.mu.Unlock()
	c.flush(ctx)

	c.logger.Debug().Str("id", id).Msg("notification dismissed")
}

// snoozeReminder reschedules the visible reminder's due time to
// now + minutes on the server. On success the slot clears and the id
// leaves the ledger so the item is re-admittable once due again. On
// failure the slot stays visible with the original item and the call can
// be retried as-is.
func (c *controller) snoozeReminder(ctx context.Context, mutator LeadMutator, minutes int) error {
	c.mu.Lock()
	if !c.slot.Visible() {
		c.mu.Unlock()
		return ErrSlotEmpty
	}
	reminder, ok := c.slot.Current().(models.DueReminder)
	c.mu.Unlock()
	if !ok {
		return ErrSlotEmpty
	}

	if err := mutator.RescheduleLead(ctx, reminder.ID, minutes); err != nil {
		c.queueFailure(ctx, "snooze", reminder.ID, err)
		return fmt.Errorf("snoozing lead %s: %w", reminder.ID, err)
	}

	c.mu.Lock()
	// The slot may have been reconciled away while the call was in
	// flight; only clear if it still holds the snoozed reminder.
	if c.slot.Visible() && c.slot.Current().ItemID() == reminder.ID {
		c.slot.Clear()
		c.resetEscalationLocked("")
	}
	c.ledger.Remove(reminder.ID)
	c.queueLocked(models.EventTypeReminderSnoozed, reminder.ID, models.SnoozedPayload{Minutes: minutes})
	c.mu.Unlock()
	c.flush(ctx)

	c.logger.Info().Str("lead_id", reminder.ID).Int("minutes", minutes).Msg("reminder snoozed")
	return nil
}

// viewReminder navigates to the lead profile, issues a one-time mark-read
// mutation when the reminder is unread, and clears the slot under the
// same local-only rule as dismiss.
func (c *controller) viewReminder(ctx context.Context, mutator LeadMutator, nav Navigator) error {
	c.mu.Lock()
	if !c.slot.Visible() {
		c.mu.Unlock()
		return ErrSlotEmpty
	}
	reminder, ok := c.slot.Current().(models.DueReminder)
	c.mu.Unlock()
	if !ok {
		return ErrSlotEmpty
	}

	if nav != nil {
		nav.OpenLeadProfile(reminder.ID)
	}

	if !reminder.Read {
		// Best effort: a failed mark-read never blocks the view.
		if err := mutator.MarkRead(ctx, reminder.ID); err != nil {
			c.logger.Warn().Err(err).Str("lead_id", reminder.ID).Msg("mark read failed")
			c.queueFailure(ctx, "mark_read", reminder.ID, err)
		}
	}

	c.mu.Lock()
	if c.slot.Visible() && c.slot.Current().ItemID() == reminder.ID {
		c.slot.Clear()
		c.resetEscalationLocked("")
	}
	c.queueLocked(models.EventTypeReminderViewed, reminder.ID, nil)
	c.mu.Unlock()
	c.flush(ctx)
	return nil
}

// joinMeeting navigates to the meeting context and clears the slot
// locally.
func (c *controller) joinMeeting(ctx context.Context, nav Navigator) error {
	c.mu.Lock()
	if !c.slot.Visible() {
		c.mu.Unlock()
		return ErrSlotEmpty
	}
	meeting, ok := c.slot.Current().(models.DueMeeting)
	c.mu.Unlock()
	if !ok {
		return ErrSlotEmpty
	}

	if nav != nil {
		nav.OpenMeetingContext(meeting.LeadID)
	}

	c.mu.Lock()
	if c.slot.Visible() && c.slot.Current().ItemID() == meeting.ID {
		c.slot.Clear()
	}
	c.queueLocked(models.EventTypeMeetingJoined, meeting.ID, nil)
	c.mu.Unlock()
	c.flush(ctx)
	return nil
}

func (c *controller) queueFailure(ctx context.Context, action, entityID string, err error) {
	c.mu.Lock()
	c.queueLocked(models.EventTypeActionFailed, entityID, models.FailedPayload{
		Action: action,
		Error:  err.Error(),
	})
	c.mu.Unlock()
	c.flush(ctx)
}
