package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sevaro/leadline/internal/models"
)

func TestEscalationFiresOnceAfterGrace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Scheduled 10 minutes in the past: the very first check after
	// admission must fire.
	h.source.setReminders(reminder("lead-1", models.LeadTagFollowUp, h.clock.Now().Add(-10*time.Minute)))
	h.engine.PollReminders(ctx)

	h.engine.CheckEscalation(ctx)
	calls := h.mutator.callsFor("update_tag")
	require.Len(t, calls, 1)
	require.Equal(t, "lead-1", calls[0].id)
	require.Equal(t, models.LeadTagMissed, calls[0].tag)

	// The guard is latched: further checks cannot double-fire.
	h.clock.Advance(time.Minute)
	h.engine.CheckEscalation(ctx)
	h.engine.CheckEscalation(ctx)
	require.Len(t, h.mutator.callsFor("update_tag"), 1)
}

func TestEscalationBoundary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scheduled := h.clock.Now()
	h.source.setReminders(reminder("lead-1", models.LeadTagFollowUp, scheduled))
	h.engine.PollReminders(ctx)

	// Zero mutations strictly before scheduled + 5m.
	h.clock.Advance(4*time.Minute + 59*time.Second)
	h.engine.CheckEscalation(ctx)
	require.Empty(t, h.mutator.callsFor("update_tag"))

	// Exactly at the boundary it fires.
	h.clock.Advance(time.Second)
	h.engine.CheckEscalation(ctx)
	require.Len(t, h.mutator.callsFor("update_tag"), 1)
}

func TestEscalationOnlyForFollowUpTag(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	past := h.clock.Now().Add(-time.Hour)

	for _, tag := range []models.LeadTag{models.LeadTagNew, models.LeadTagNotConnected, models.LeadTagTrending} {
		h.source.setReminders(reminder("lead-"+string(tag), tag, past))
		h.engine.PollReminders(ctx)
		h.engine.CheckEscalation(ctx)
		h.engine.DismissReminder(ctx)
	}

	require.Empty(t, h.mutator.callsFor("update_tag"))
}

func TestEscalationUsesLatestPolledSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scheduled := h.clock.Now().Add(-10 * time.Minute)

	// Admitted as new, so no escalation applies yet.
	h.source.setReminders(reminder("lead-1", models.LeadTagNew, scheduled))
	h.engine.PollReminders(ctx)
	h.engine.CheckEscalation(ctx)
	require.Empty(t, h.mutator.callsFor("update_tag"))

	// A later poll flips the tag to follow_up; the check must see the
	// refreshed record, not the admission-time snapshot.
	h.source.setReminders(reminder("lead-1", models.LeadTagFollowUp, scheduled))
	h.engine.PollReminders(ctx)
	h.engine.CheckEscalation(ctx)
	require.Len(t, h.mutator.callsFor("update_tag"), 1)
}

func TestEscalationMutationFailureDoesNotLatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.setReminders(reminder("lead-1", models.LeadTagFollowUp, h.clock.Now().Add(-10*time.Minute)))
	h.engine.PollReminders(ctx)

	h.mutator.failOn("update_tag", errors.New("server unavailable"))
	h.engine.CheckEscalation(ctx)
	require.Empty(t, h.mutator.callsFor("update_tag"))

	// Slot and ledger are untouched by the failed mutation.
	rem, _, ok := h.engine.CurrentReminder()
	require.True(t, ok)
	require.Equal(t, "lead-1", rem.ID)

	// A later cycle, after the server recovers, can escalate.
	h.mutator.failOn("update_tag", nil)
	h.engine.CheckEscalation(ctx)
	require.Len(t, h.mutator.callsFor("update_tag"), 1)
}

func TestEscalationTornDownWithSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.setReminders(reminder("lead-1", models.LeadTagFollowUp, h.clock.Now().Add(-10*time.Minute)))
	h.engine.PollReminders(ctx)

	// The item loses the slot before any check runs; the stale timer
	// must not fire against it.
	h.engine.DismissReminder(ctx)
	h.engine.CheckEscalation(ctx)
	require.Empty(t, h.mutator.callsFor("update_tag"))
}

func TestEscalationSkipsZeroScheduledAt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.setReminders(reminder("lead-1", models.LeadTagFollowUp, time.Time{}))
	h.engine.PollReminders(ctx)

	h.engine.CheckEscalation(ctx)
	require.Empty(t, h.mutator.callsFor("update_tag"))
}
