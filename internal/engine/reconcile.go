package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sevaro/leadline/internal/events"
	"github.com/sevaro/leadline/internal/models"
)

// controller owns the ledger, slot, and escalation guard for one
// notification class. All state mutation happens under mu, so a tick is
// atomic with respect to dispatcher actions on the same class. The two
// classes share no mutable state.
type controller struct {
	name       string
	entityType models.EntityType

	mu      sync.Mutex
	ledger  *Ledger
	slot    *Slot
	esc     *escalation // nil for the meeting class
	pending []*models.Event

	clock     Clock
	alert     func()
	publisher events.Publisher
	logger    zerolog.Logger

	eventAdmitted  models.EventType
	eventRefreshed models.EventType
	eventCleared   models.EventType
}

func newController(name string, entityType models.EntityType, clock Clock, alert func(), publisher events.Publisher, logger zerolog.Logger) *controller {
	return &controller{
		name:       name,
		entityType: entityType,
		ledger:     NewLedger(),
		slot:       NewSlot(),
		clock:      clock,
		alert:      alert,
		publisher:  publisher,
		logger:     logger,
	}
}

// reconcile merges a fresh due-set snapshot with the ledger and slot.
// Guarantee: at most one admission event, and therefore at most one alert,
// per id per visibility lifecycle, no matter how often the poll ticks.
func (c *controller) reconcile(ctx context.Context, dueSet []Item) {
	c.mu.Lock()
	c.reconcileLocked(dueSet)
	c.mu.Unlock()
	c.flush(ctx)
}

func (c *controller) reconcileLocked(dueSet []Item) {
	// An empty due set forces the slot empty immediately.
	if len(dueSet) == 0 {
		if removed := c.ledger.Prune(map[string]struct{}{}); len(removed) > 0 {
			c.logger.Debug().Strs("ids", removed).Msg("pruned resolved ids from ledger")
		}
		if c.slot.Visible() {
			c.clearSlotLocked()
		}
		return
	}

	currentIDs := make(map[string]struct{}, len(dueSet))
	for _, item := range dueSet {
		currentIDs[item.ItemID()] = struct{}{}
	}

	// Shown ids missing from the snapshot were resolved externally (or by
	// this client's own prior mutation); drop them so a legitimately
	// reused id stays eligible.
	if removed := c.ledger.Prune(currentIDs); len(removed) > 0 {
		c.logger.Debug().Strs("ids", removed).Msg("pruned resolved ids from ledger")
	}

	if c.slot.Visible() {
		id := c.slot.Current().ItemID()
		if fresh, ok := lookupItem(dueSet, id); ok {
			// In-place update of mutable fields, no re-admission, no
			// second alert.
			c.slot.Refresh(fresh)
			c.queueLocked(c.eventRefreshed, id, nil)
		} else {
			// Resolved elsewhere: another device, a server-side expiry,
			// or this client's own mutation already applied.
			c.clearSlotLocked()
		}
		return
	}

	// Slot is empty: admit the first item not yet shown, in
	// server-provided order.
	for _, item := range dueSet {
		if item.ItemID() == "" {
			continue
		}
		if c.ledger.Contains(item.ItemID()) {
			continue
		}
		now := c.clock.Now()
		c.slot.Admit(item, now)
		c.ledger.Add(item.ItemID())
		c.resetEscalationLocked(item.ItemID())
		if c.alert != nil {
			c.alert()
		}
		c.logger.Info().
			Str("id", item.ItemID()).
			Time("due_at", item.DueAt()).
			Msg("admitted item to notification slot")
		c.queueLocked(c.eventAdmitted, item.ItemID(), models.AdmittedPayload{AdmittedAt: now})
		return
	}
}

// clearSlotLocked empties the slot and tears down the escalation guard.
// Callers must hold mu.
func (c *controller) clearSlotLocked() {
	prev := c.slot.Current()
	c.slot.Clear()
	c.resetEscalationLocked("")
	if prev != nil {
		c.logger.Debug().Str("id", prev.ItemID()).Msg("cleared notification slot")
		c.queueLocked(c.eventCleared, prev.ItemID(), nil)
	}
}

func (c *controller) resetEscalationLocked(itemID string) {
	if c.esc != nil {
		c.esc.reset(itemID)
	}
}

// snapshot returns the visible item and admission time.
func (c *controller) snapshot() (Item, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.slot.Visible() {
		return nil, time.Time{}, false
	}
	return c.slot.Current(), c.slot.AdmittedAt(), true
}

// queueLocked records an event for delivery. Callers must hold mu;
// delivery happens in flush, outside the lock, so subscribers may call
// back into the engine.
func (c *controller) queueLocked(typ models.EventType, entityID string, payload any) {
	if c.publisher == nil || typ == "" {
		return
	}
	event := &models.Event{
		ID:         uuid.New().String(),
		Timestamp:  c.clock.Now(),
		Type:       typ,
		EntityType: c.entityType,
		EntityID:   entityID,
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			event.Payload = data
		}
	}
	c.pending = append(c.pending, event)
}

// flush delivers queued events outside the state lock.
func (c *controller) flush(ctx context.Context) {
	c.mu.Lock()
	queued := c.pending
	c.pending = nil
	c.mu.Unlock()

	if c.publisher == nil {
		return
	}
	for _, event := range queued {
		c.publisher.Publish(ctx, event)
	}
}

func lookupItem(dueSet []Item, id string) (Item, bool) {
	for _, item := range dueSet {
		if item.ItemID() == id {
			return item, true
		}
	}
	return nil, false
}
