package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sevaro/leadline/internal/events"
	"github.com/sevaro/leadline/internal/logging"
	"github.com/sevaro/leadline/internal/models"
)

// Config contains engine timing configuration.
type Config struct {
	// ReminderPollInterval is how often the reminder due set is polled.
	// Default: 5s
	ReminderPollInterval time.Duration

	// MeetingPollInterval is how often the meeting due set is polled.
	// Default: 10s
	MeetingPollInterval time.Duration

	// EscalationCheckInterval is how often a visible follow-up is checked
	// against the grace window. Default: 10s
	EscalationCheckInterval time.Duration

	// EscalationGrace is how far past its scheduled time an unanswered
	// visible follow-up may run before it is marked missed. Default: 5m
	EscalationGrace time.Duration

	// SnoozeDefaultMinutes is the snooze duration used when the caller
	// passes zero. Default: 10
	SnoozeDefaultMinutes int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReminderPollInterval:    5 * time.Second,
		MeetingPollInterval:     10 * time.Second,
		EscalationCheckInterval: 10 * time.Second,
		EscalationGrace:         5 * time.Minute,
		SnoozeDefaultMinutes:    10,
	}
}

// Engine drives the two notification classes: it polls the due-item
// source on independent cadences, reconciles each snapshot against the
// per-class ledger and slot, escalates unanswered follow-ups, and applies
// user actions. One class's failure or backoff never stalls the other.
type Engine struct {
	config  Config
	source  DueSource
	mutator LeadMutator
	nav     Navigator

	reminders *controller
	meetings  *controller

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	clock     Clock
	alert     func()
	publisher events.Publisher
}

// WithClock substitutes the wall clock, for tests.
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithAlert sets the alert-sound hook, invoked at most once per
// admission event.
func WithAlert(alert func()) Option {
	return func(o *options) { o.alert = alert }
}

// WithPublisher sets the event publisher the engine emits through.
func WithPublisher(publisher events.Publisher) Option {
	return func(o *options) { o.publisher = publisher }
}

// New creates an Engine. Zero config fields fall back to defaults.
func New(config Config, source DueSource, mutator LeadMutator, nav Navigator, opts ...Option) *Engine {
	defaults := DefaultConfig()
	if config.ReminderPollInterval <= 0 {
		config.ReminderPollInterval = defaults.ReminderPollInterval
	}
	if config.MeetingPollInterval <= 0 {
		config.MeetingPollInterval = defaults.MeetingPollInterval
	}
	if config.EscalationCheckInterval <= 0 {
		config.EscalationCheckInterval = defaults.EscalationCheckInterval
	}
	if config.EscalationGrace <= 0 {
		config.EscalationGrace = defaults.EscalationGrace
	}
	if config.SnoozeDefaultMinutes <= 0 {
		config.SnoozeDefaultMinutes = defaults.SnoozeDefaultMinutes
	}

	o := &options{clock: systemClock{}}
	for _, opt := range opts {
		opt(o)
	}

	reminders := newController("reminders", models.EntityTypeLead,
		o.clock, o.alert, o.publisher, logging.Component("reminder-slot"))
	reminders.esc = &escalation{grace: config.EscalationGrace}
	reminders.eventAdmitted = models.EventTypeReminderAdmitted
	reminders.eventRefreshed = models.EventTypeReminderRefreshed
	reminders.eventCleared = models.EventTypeReminderCleared

	meetings := newController("meetings", models.EntityTypeMeeting,
		o.clock, o.alert, o.publisher, logging.Component("meeting-slot"))
	meetings.eventAdmitted = models.EventTypeMeetingAdmitted
	meetings.eventCleared = models.EventTypeMeetingCleared

	return &Engine{
		config:    config,
		source:    source,
		mutator:   mutator,
		nav:       nav,
		reminders: reminders,
		meetings:  meetings,
	}
}

// Start begins the polling and escalation loops.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrEngineAlreadyRunning
	}

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.running = true

	e.reminders.logger.Info().
		Dur("reminder_interval", e.config.ReminderPollInterval).
		Dur("meeting_interval", e.config.MeetingPollInterval).
		Dur("escalation_interval", e.config.EscalationCheckInterval).
		Dur("grace", e.config.EscalationGrace).
		Msg("engine starting")

	e.wg.Add(3)
	go e.runLoop(e.config.ReminderPollInterval, e.PollReminders)
	go e.runLoop(e.config.MeetingPollInterval, e.PollMeetings)
	go e.runLoop(e.config.EscalationCheckInterval, e.CheckEscalation)

	return nil
}

// Stop halts all loops and waits for them to exit.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrEngineNotRunning
	}
	e.cancel()
	e.running = false
	e.mu.Unlock()

	e.wg.Wait()
	e.reminders.logger.Info().Msg("engine stopped")
	return nil
}

// IsRunning returns true if the engine loops are active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// runLoop ticks fn at the given interval until the engine context is
// cancelled. The first tick fires immediately.
func (e *Engine) runLoop(interval time.Duration, fn func(context.Context)) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(e.ctx)

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			fn(e.ctx)
		}
	}
}

// PollReminders fetches the reminder due set and reconciles it. A fetch
// failure skips the tick: prior ledger and slot state stay untouched and
// the next scheduled tick retries. Absence of data is never inferred
// from a failed poll.
func (e *Engine) PollReminders(ctx context.Context) {
	reminders, err := e.source.DueReminders(ctx)
	if err != nil {
		e.reminders.logger.Warn().Err(err).Msg("reminder poll failed, keeping previous state")
		e.reminders.queueFailure(ctx, "poll_reminders", "", err)
		return
	}

	items := make([]Item, 0, len(reminders))
	for _, r := range reminders {
		items = append(items, r)
	}
	e.reminders.reconcile(ctx, items)
}

// PollMeetings fetches the meeting due set and reconciles it.
func (e *Engine) PollMeetings(ctx context.Context) {
	meetings, err := e.source.DueMeetings(ctx)
	if err != nil {
		e.meetings.logger.Warn().Err(err).Msg("meeting poll failed, keeping previous state")
		e.meetings.queueFailure(ctx, "poll_meetings", "", err)
		return
	}

	items := make([]Item, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, m)
	}
	e.meetings.reconcile(ctx, items)
}

// CheckEscalation runs one escalation cycle for the reminder slot.
func (e *Engine) CheckEscalation(ctx context.Context) {
	e.reminders.checkEscalation(ctx, e.mutator)
}

// DismissReminder clears the reminder slot locally. No remote mutation,
// no ledger change; a no-op when the slot is empty.
func (e *Engine) DismissReminder(ctx context.Context) {
	e.reminders.dismiss(ctx, models.EventTypeReminderDismissed)
}

// DismissMeeting clears the meeting slot locally.
func (e *Engine) DismissMeeting(ctx context.Context) {
	e.meetings.dismiss(ctx, models.EventTypeMeetingDismissed)
}

// SnoozeReminder defers the visible reminder by minutes (engine default
// when zero). The remote due time becomes server-now + minutes.
func (e *Engine) SnoozeReminder(ctx context.Context, minutes int) error {
	if minutes <= 0 {
		minutes = e.config.SnoozeDefaultMinutes
	}
	return e.reminders.snoozeReminder(ctx, e.mutator, minutes)
}

// ViewReminder opens the visible reminder's lead profile, marks it read
// once, and clears the slot.
func (e *Engine) ViewReminder(ctx context.Context) error {
	return e.reminders.viewReminder(ctx, e.mutator, e.nav)
}

// JoinMeeting opens the visible meeting's context and clears the slot.
func (e *Engine) JoinMeeting(ctx context.Context) error {
	return e.meetings.joinMeeting(ctx, e.nav)
}

// CurrentReminder returns the visible reminder, its local admission time,
// and whether the slot is occupied.
func (e *Engine) CurrentReminder() (models.DueReminder, time.Time, bool) {
	item, admittedAt, ok := e.reminders.snapshot()
	if !ok {
		return models.DueReminder{}, time.Time{}, false
	}
	reminder, ok := item.(models.DueReminder)
	return reminder, admittedAt, ok
}

// CurrentMeeting returns the visible meeting, its local admission time,
// and whether the slot is occupied.
func (e *Engine) CurrentMeeting() (models.DueMeeting, time.Time, bool) {
	item, admittedAt, ok := e.meetings.snapshot()
	if !ok {
		return models.DueMeeting{}, time.Time{}, false
	}
	meeting, ok := item.(models.DueMeeting)
	return meeting, admittedAt, ok
}

// ShownReminderCount reports how many reminder ids the session ledger
// currently suppresses.
func (e *Engine) ShownReminderCount() int {
	e.reminders.mu.Lock()
	defer e.reminders.mu.Unlock()
	return e.reminders.ledger.Len()
}
