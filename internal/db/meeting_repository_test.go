package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sevaro/leadline/internal/models"
)

func createMeeting(t *testing.T, repo *MeetingRepository, leadID, title string, scheduledAt time.Time, attendees []string) *models.Meeting {
	t.Helper()
	meeting := &models.Meeting{
		LeadID:      leadID,
		Title:       title,
		ScheduledAt: scheduledAt,
		Attendees:   attendees,
	}
	if err := repo.Create(context.Background(), meeting); err != nil {
		t.Fatalf("Create meeting: %v", err)
	}
	return meeting
}

func TestMeetingRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	leadRepo := NewLeadRepository(database)
	repo := NewMeetingRepository(database)

	lead := createLead(t, leadRepo, "Acme", models.LeadTagNew, models.PriorityMedium, nil)
	at := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	meeting := createMeeting(t, repo, lead.ID, "Kickoff", at, []string{"Ada", "Sam"})

	got, err := repo.Get(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Kickoff" || got.LeadID != lead.ID {
		t.Fatalf("unexpected meeting: %+v", got)
	}
	if len(got.Attendees) != 2 || got.Attendees[0] != "Ada" {
		t.Fatalf("unexpected attendees: %v", got.Attendees)
	}
	if got.Status != models.MeetingStatusScheduled {
		t.Fatalf("expected scheduled status, got %s", got.Status)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestMeetingRepositoryDueWindow(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	leadRepo := NewLeadRepository(database)
	repo := NewMeetingRepository(database)

	lead := createLead(t, leadRepo, "Acme", models.LeadTagNew, models.PriorityMedium, nil)
	now := time.Now().UTC().Truncate(time.Second)

	createMeeting(t, repo, lead.ID, "Just started", now.Add(-time.Minute), []string{"Ada"})
	createMeeting(t, repo, lead.ID, "Long over", now.Add(-time.Hour), nil)
	createMeeting(t, repo, lead.ID, "Upcoming", now.Add(time.Hour), nil)
	joined := createMeeting(t, repo, lead.ID, "Already joined", now.Add(-time.Minute), nil)
	if err := repo.UpdateStatus(ctx, joined.ID, models.MeetingStatusJoined); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	due, err := repo.DueMeetings(ctx, now, 15*time.Minute)
	if err != nil {
		t.Fatalf("DueMeetings: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due meeting, got %d", len(due))
	}
	if due[0].Title != "Just started" {
		t.Fatalf("unexpected due meeting: %s", due[0].Title)
	}
	// Missing attendee lists decode to empty, never nil.
	if due[0].Attendees == nil {
		t.Fatal("attendees must not be nil")
	}
}

func TestMeetingRepositoryUpdateStatus(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	leadRepo := NewLeadRepository(database)
	repo := NewMeetingRepository(database)

	lead := createLead(t, leadRepo, "Acme", models.LeadTagNew, models.PriorityMedium, nil)
	meeting := createMeeting(t, repo, lead.ID, "Kickoff", time.Now().UTC(), nil)

	if err := repo.UpdateStatus(ctx, meeting.ID, models.MeetingStatus("bogus")); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if err := repo.UpdateStatus(ctx, "missing", models.MeetingStatusCancelled); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestEventRepositoryCreateAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	base := time.Now().UTC().Truncate(time.Second)
	for i, eventType := range []models.EventType{
		models.EventTypeReminderAdmitted,
		models.EventTypeReminderSnoozed,
		models.EventTypeReminderEscalated,
	} {
		event := &models.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Type:       eventType,
			EntityType: models.EntityTypeLead,
			EntityID:   "lead-1",
		}
		if err := repo.Create(ctx, event); err != nil {
			t.Fatalf("Create event %d: %v", i, err)
		}
		if event.ID == "" {
			t.Fatal("Create did not set event ID")
		}
	}

	events, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != models.EventTypeReminderEscalated {
		t.Fatalf("expected newest first, got %s", events[0].Type)
	}
}
