package engine

import (
	"context"
	"time"

	"github.com/sevaro/leadline/internal/models"
)

// escalation guards the one-time follow_up -> missed transition for the
// reminder slot. Its fields are protected by the owning controller's
// mutex; the guard is reset on every admission and slot clear, so a stale
// check can never fire a mutation against an item the slot no longer
// holds.
type escalation struct {
	grace time.Duration

	// itemID is the id the guard is armed for, set at admission.
	itemID string

	// fired latches once the missed mutation succeeded for itemID.
	fired bool

	// inFlight blocks a second check while a mutation is outstanding.
	inFlight bool
}

// reset re-arms the guard for a newly admitted item, or disarms it when
// itemID is empty (slot cleared).
func (e *escalation) reset(itemID string) {
	e.itemID = itemID
	e.fired = false
}

// checkEscalation runs one escalation cycle for the reminder class.
// It fires at most one missed mutation per visibility lifecycle: the
// mutation is issued when the visible reminder still carries the
// follow_up tag and its scheduled time is at least the grace window in
// the past. The comparison always uses the latest polled snapshot of the
// reminder, which reconcile refreshes in place every tick.
func (c *controller) checkEscalation(ctx context.Context, mutator LeadMutator) {
	c.mu.Lock()
	if c.esc == nil || !c.slot.Visible() {
		c.mu.Unlock()
		return
	}
	reminder, ok := c.slot.Current().(models.DueReminder)
	if !ok || reminder.Tag != models.LeadTagFollowUp {
		c.mu.Unlock()
		return
	}
	if reminder.ScheduledAt.IsZero() {
		// Unparsable timestamp: the window cannot be evaluated.
		c.mu.Unlock()
		return
	}
	if c.esc.fired || c.esc.inFlight || c.esc.itemID != reminder.ID {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	overdue := now.Sub(reminder.ScheduledAt)
	if overdue < c.esc.grace {
		c.mu.Unlock()
		return
	}
	c.esc.inFlight = true
	c.mu.Unlock()

	// Network call happens outside the lock; reconcile and dispatcher
	// actions may run meanwhile.
	err := mutator.UpdateLeadTag(ctx, reminder.ID, models.LeadTagMissed)

	c.mu.Lock()
	c.esc.inFlight = false
	if err != nil {
		// No retry within this cycle; the next reconciliation poll
		// re-evaluates from authoritative server state.
		c.logger.Warn().Err(err).Str("lead_id", reminder.ID).Msg("escalation mutation failed")
		c.queueLocked(models.EventTypeActionFailed, reminder.ID, models.FailedPayload{
			Action: "escalate",
			Error:  err.Error(),
		})
		c.mu.Unlock()
		c.flush(ctx)
		return
	}

	// Only latch if the slot still holds the item this cycle escalated;
	// otherwise the guard already belongs to a newer admission.
	if c.esc.itemID == reminder.ID {
		c.esc.fired = true
	}
	c.logger.Warn().
		Str("lead_id", reminder.ID).
		Dur("overdue", overdue).
		Msg("follow-up unanswered past grace window, lead marked missed")
	c.queueLocked(models.EventTypeReminderEscalated, reminder.ID, models.EscalatedPayload{
		ScheduledAt: reminder.ScheduledAt,
		Overdue:     overdue.Truncate(time.Second).String(),
	})
	c.mu.Unlock()
	c.flush(ctx)
}
