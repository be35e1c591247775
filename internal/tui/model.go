// Package tui renders the notification shell: one card per class showing
// the currently visible reminder and meeting, with keybindings that feed
// the engine's action dispatcher.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevaro/leadline/internal/engine"
	"github.com/sevaro/leadline/internal/events"
	"github.com/sevaro/leadline/internal/models"
)

// Config contains TUI settings.
type Config struct {
	// ShowTimestamps shows event timestamps in the status line.
	ShowTimestamps bool

	// Bell rings the terminal bell when an item is admitted.
	Bell bool
}

// engineEventMsg wraps an engine event for the bubbletea loop.
type engineEventMsg struct {
	event *models.Event
}

// tickMsg refreshes relative times once per second.
type tickMsg time.Time

// Model is the root bubbletea model.
type Model struct {
	engine *engine.Engine
	config Config

	eventCh    chan *models.Event
	width      int
	lastStatus string
	quitting   bool
}

// New creates the notification shell. It subscribes to the publisher;
// the subscription lives for the life of the program.
func New(eng *engine.Engine, publisher events.Publisher, config Config) (*Model, error) {
	m := &Model{
		engine:  eng,
		config:  config,
		eventCh: make(chan *models.Event, 64),
	}

	err := publisher.Subscribe("tui", events.Filter{}, func(event *models.Event) {
		select {
		case m.eventCh <- event:
		default:
			// A stalled UI must not block the engine.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to engine events: %w", err)
	}

	return m, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), tick())
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return engineEventMsg{event: <-m.eventCh}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func bell() tea.Msg {
	fmt.Print("\a")
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, tick()

	case engineEventMsg:
		cmds := []tea.Cmd{m.waitForEvent()}
		if msg.event != nil {
			m.lastStatus = m.describeEvent(msg.event)
			if m.config.Bell && isAdmission(msg.event.Type) {
				cmds = append(cmds, bell)
			}
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "d":
		m.engine.DismissReminder(ctx)
		return m, nil

	case "s":
		if err := m.engine.SnoozeReminder(ctx, 0); err != nil {
			m.lastStatus = "snooze failed: " + err.Error()
		}
		return m, nil

	case "enter", "v":
		if err := m.engine.ViewReminder(ctx); err != nil {
			m.lastStatus = "view failed: " + err.Error()
		}
		return m, nil

	case "j":
		if err := m.engine.JoinMeeting(ctx); err != nil {
			m.lastStatus = "join failed: " + err.Error()
		}
		return m, nil

	case "m":
		m.engine.DismissMeeting(ctx)
		return m, nil
	}

	return m, nil
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Leadline"))
	b.WriteString("\n\n")
	b.WriteString(m.reminderCard())
	b.WriteString("\n")
	b.WriteString(m.meetingCard())
	b.WriteString("\n")

	if m.lastStatus != "" {
		b.WriteString(statusStyle.Render(m.lastStatus))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("d dismiss · s snooze · enter view · j join · m dismiss meeting · q quit"))
	return b.String()
}

func (m *Model) reminderCard() string {
	reminder, _, ok := m.engine.CurrentReminder()
	if !ok {
		return reminderCardStyle.Render(emptyStyle.Render("No follow-ups due"))
	}

	var lines []string
	lines = append(lines, titleStyle.Render(reminder.Name)+"  "+tagBadge(string(reminder.Tag))+" "+priorityBadge(string(reminder.Priority)))
	lines = append(lines, labelStyle.Render("scheduled ")+formatScheduled(reminder.ScheduledAt))
	if overdue := time.Since(reminder.ScheduledAt); !reminder.ScheduledAt.IsZero() && overdue > 0 {
		lines = append(lines, overdueStyle.Render(fmt.Sprintf("overdue %s", formatDuration(overdue))))
	}
	if reminder.StageCount > 0 {
		lines = append(lines, labelStyle.Render("stage ")+fmt.Sprintf("%d/%d", reminder.StageIndex+1, reminder.StageCount))
	}

	return reminderCardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) meetingCard() string {
	meeting, _, ok := m.engine.CurrentMeeting()
	if !ok {
		return meetingCardStyle.Render(emptyStyle.Render("No meetings starting"))
	}

	var lines []string
	lines = append(lines, titleStyle.Render(meeting.Title))
	start := labelStyle.Render("starts ") + formatScheduled(meeting.ScheduledAt)
	if until := time.Until(meeting.ScheduledAt); !meeting.ScheduledAt.IsZero() && until > 0 {
		start += labelStyle.Render(" (in " + formatDuration(until) + ")")
	}
	lines = append(lines, start)
	if len(meeting.Attendees) > 0 {
		lines = append(lines, labelStyle.Render("with ")+strings.Join(meeting.Attendees, ", "))
	}

	return meetingCardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) describeEvent(event *models.Event) string {
	desc := fmt.Sprintf("%s %s", event.Type, event.EntityID)
	if m.config.ShowTimestamps && !event.Timestamp.IsZero() {
		desc = event.Timestamp.Local().Format("15:04:05") + " " + desc
	}
	return desc
}

func isAdmission(typ models.EventType) bool {
	return typ == models.EventTypeReminderAdmitted || typ == models.EventTypeMeetingAdmitted
}

// formatScheduled renders a timestamp, or a placeholder for records that
// arrived without a parseable time.
func formatScheduled(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	return t.Local().Format("Mon 15:04")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d >= time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

// Run starts the bubbletea program and blocks until it exits.
func Run(ctx context.Context, model *Model) error {
	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}
