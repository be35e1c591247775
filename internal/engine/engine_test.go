package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sevaro/leadline/internal/models"
)

// fakeClock is a settable clock for deterministic timing tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubSource serves programmable due sets.
type stubSource struct {
	mu        sync.Mutex
	reminders []models.DueReminder
	meetings  []models.DueMeeting
	err       error
}

func (s *stubSource) setReminders(reminders ...models.DueReminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = reminders
}

func (s *stubSource) setMeetings(meetings ...models.DueMeeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings = meetings
}

func (s *stubSource) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSource) DueReminders(_ context.Context) ([]models.DueReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.DueReminder(nil), s.reminders...), nil
}

func (s *stubSource) DueMeetings(_ context.Context) ([]models.DueMeeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.DueMeeting(nil), s.meetings...), nil
}

// mutatorCall records one remote mutation.
type mutatorCall struct {
	op      string
	id      string
	tag     models.LeadTag
	minutes int
}

// fakeMutator records mutations and can be made to fail per operation.
type fakeMutator struct {
	mu    sync.Mutex
	calls []mutatorCall
	fail  map[string]error
}

func newFakeMutator() *fakeMutator {
	return &fakeMutator{fail: make(map[string]error)}
}

func (m *fakeMutator) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *fakeMutator) record(call mutatorCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[call.op]; err != nil {
		return err
	}
	m.calls = append(m.calls, call)
	return nil
}

func (m *fakeMutator) callsFor(op string) []mutatorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mutatorCall
	for _, call := range m.calls {
		if call.op == op {
			out = append(out, call)
		}
	}
	return out
}

func (m *fakeMutator) UpdateLeadTag(_ context.Context, id string, tag models.LeadTag) error {
	return m.record(mutatorCall{op: "update_tag", id: id, tag: tag})
}

func (m *fakeMutator) RescheduleLead(_ context.Context, id string, addMinutes int) error {
	return m.record(mutatorCall{op: "reschedule", id: id, minutes: addMinutes})
}

func (m *fakeMutator) MarkRead(_ context.Context, id string) error {
	return m.record(mutatorCall{op: "mark_read", id: id})
}

// fakeNav records navigation intents.
type fakeNav struct {
	mu       sync.Mutex
	leads    []string
	meetings []string
}

func (n *fakeNav) OpenLeadProfile(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, id)
}

func (n *fakeNav) OpenMeetingContext(leadID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.meetings = append(n.meetings, leadID)
}

// alertCounter counts admission sounds.
type alertCounter struct {
	mu sync.Mutex
	n  int
}

func (a *alertCounter) fire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.n++
}

func (a *alertCounter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}

// harness bundles an engine with its fakes.
type harness struct {
	engine  *Engine
	source  *stubSource
	mutator *fakeMutator
	nav     *fakeNav
	clock   *fakeClock
	alerts  *alertCounter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	source := &stubSource{}
	mutator := newFakeMutator()
	nav := &fakeNav{}
	clock := newFakeClock(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	alerts := &alertCounter{}

	eng := New(DefaultConfig(), source, mutator, nav,
		WithClock(clock),
		WithAlert(alerts.fire),
	)
	return &harness{engine: eng, source: source, mutator: mutator, nav: nav, clock: clock, alerts: alerts}
}

func reminder(id string, tag models.LeadTag, scheduledAt time.Time) models.DueReminder {
	return models.DueReminder{
		ID:          id,
		Name:        "Lead " + id,
		ScheduledAt: scheduledAt,
		Tag:         tag,
		Priority:    models.PriorityMedium,
		StageIndex:  1,
		StageCount:  4,
	}
}

func TestEngineStartStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.False(t, h.engine.IsRunning())
	require.ErrorIs(t, h.engine.Stop(), ErrEngineNotRunning)

	require.NoError(t, h.engine.Start(ctx))
	require.True(t, h.engine.IsRunning())
	require.ErrorIs(t, h.engine.Start(ctx), ErrEngineAlreadyRunning)

	require.NoError(t, h.engine.Stop())
	require.False(t, h.engine.IsRunning())
}

func TestEngineLoopsAdmitWhileRunning(t *testing.T) {
	h := newHarness(t)
	due := h.clock.Now().Add(-time.Minute)
	h.source.setReminders(reminder("lead-1", models.LeadTagFollowUp, due))
	h.source.setMeetings(models.DueMeeting{
		ID:          "meet-1",
		LeadID:      "lead-9",
		Title:       "Demo call",
		ScheduledAt: due,
		Attendees:   []string{"Ada", "Sam"},
	})

	cfg := DefaultConfig()
	cfg.ReminderPollInterval = 10 * time.Millisecond
	cfg.MeetingPollInterval = 10 * time.Millisecond
	eng := New(cfg, h.source, h.mutator, h.nav, WithClock(h.clock), WithAlert(h.alerts.fire))

	require.NoError(t, eng.Start(context.Background()))
	defer func() { _ = eng.Stop() }()

	require.Eventually(t, func() bool {
		_, _, remOK := eng.CurrentReminder()
		_, _, meetOK := eng.CurrentMeeting()
		return remOK && meetOK
	}, time.Second, 5*time.Millisecond)

	rem, admittedAt, _ := eng.CurrentReminder()
	require.Equal(t, "lead-1", rem.ID)
	require.False(t, admittedAt.IsZero())
}
