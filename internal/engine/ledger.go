package engine

// Ledger tracks which item ids have already been admitted to the visible
// slot during the current due-set epoch. One ledger exists per
// notification class per engine lifetime; it is owned by the class
// controller and rebuilt from zero on restart.
type Ledger struct {
	shown map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{shown: make(map[string]struct{})}
}

// Add marks an id as shown.
func (l *Ledger) Add(id string) {
	l.shown[id] = struct{}{}
}

// Contains reports whether an id has been shown.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.shown[id]
	return ok
}

// Remove deletes an id, making it eligible for admission again.
func (l *Ledger) Remove(id string) {
	delete(l.shown, id)
}

// Prune removes every shown id absent from the current due-set snapshot.
// The server no longer considers those items due, so keeping them would
// suppress a legitimate future occurrence of the same id forever.
// Returns the removed ids.
func (l *Ledger) Prune(current map[string]struct{}) []string {
	var removed []string
	for id := range l.shown {
		if _, ok := current[id]; !ok {
			delete(l.shown, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Len returns the number of shown ids.
func (l *Ledger) Len() int {
	return len(l.shown)
}
