package engine

import "time"

// SlotState is the visibility state of a notification slot.
type SlotState string

const (
	SlotEmpty   SlotState = "empty"
	SlotVisible SlotState = "visible"
)

// Slot holds at most one visible notification for a class. The slot is
// owned exclusively by its class controller; admittedAt records the local
// clock time of admission, distinct from the item's scheduled time.
type Slot struct {
	state      SlotState
	current    Item
	admittedAt time.Time
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{state: SlotEmpty}
}

// State returns the slot state.
func (s *Slot) State() SlotState { return s.state }

// Visible reports whether an item currently occupies the slot.
func (s *Slot) Visible() bool { return s.state == SlotVisible }

// Current returns the occupying item, nil when empty.
func (s *Slot) Current() Item {
	if s.state != SlotVisible {
		return nil
	}
	return s.current
}

// AdmittedAt returns the local admission time, zero when empty.
func (s *Slot) AdmittedAt() time.Time {
	if s.state != SlotVisible {
		return time.Time{}
	}
	return s.admittedAt
}

// Admit places an item into the slot. This is the single admission event
// per visibility lifecycle; the caller triggers the alert side effect.
func (s *Slot) Admit(item Item, now time.Time) {
	s.state = SlotVisible
	s.current = item
	s.admittedAt = now
}

// Refresh replaces the occupying item's record with a fresh snapshot of
// the same id. Not a re-admission: admittedAt is kept and no alert fires.
func (s *Slot) Refresh(item Item) {
	if s.state != SlotVisible {
		return
	}
	s.current = item
}

// Clear empties the slot.
func (s *Slot) Clear() {
	s.state = SlotEmpty
	s.current = nil
	s.admittedAt = time.Time{}
}
