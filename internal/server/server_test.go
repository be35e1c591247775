package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sevaro/leadline/internal/db"
	"github.com/sevaro/leadline/internal/models"
)

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(DefaultConfig(), database), database
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func seedLead(t *testing.T, database *db.DB, name string, tag models.LeadTag, followUpAt time.Time) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		Name:       name,
		Tag:        tag,
		Priority:   models.PriorityHigh,
		StageIndex: 1,
		StageCount: 4,
	}
	if !followUpAt.IsZero() {
		lead.FollowUpAt = &followUpAt
	}
	require.NoError(t, db.NewLeadRepository(database).Create(context.Background(), lead))
	return lead
}

func TestDueRemindersEndpoint(t *testing.T) {
	srv, database := newTestServer(t)

	now := time.Now().UTC()
	due := seedLead(t, database, "Ada Lovelace", models.LeadTagFollowUp, now.Add(-2*time.Minute))
	seedLead(t, database, "Not Due Yet", models.LeadTagFollowUp, now.Add(time.Hour))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/due/reminders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var reminders []models.DueReminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reminders))
	require.Len(t, reminders, 1)
	require.Equal(t, due.ID, reminders[0].ID)
	require.Equal(t, "Ada Lovelace", reminders[0].Name)
}

func TestDueRemindersEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/due/reminders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", string(bytes.TrimSpace(rec.Body.Bytes())), "empty due set must encode as an array")
}

func TestUpdateTagEndpoint(t *testing.T) {
	srv, database := newTestServer(t)
	lead := seedLead(t, database, "Grace Hopper", models.LeadTagFollowUp, time.Now().UTC())

	rec := doJSON(t, srv.Handler(), http.MethodPatch, "/v1/leads/"+lead.ID+"/tag",
		map[string]string{"tag": "missed"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := db.NewLeadRepository(database).Get(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Equal(t, models.LeadTagMissed, got.Tag)
}

func TestUpdateTagInvalidTransitionConflicts(t *testing.T) {
	srv, database := newTestServer(t)
	lead := seedLead(t, database, "Closed Deal", models.LeadTagWon, time.Now().UTC())

	rec := doJSON(t, srv.Handler(), http.MethodPatch, "/v1/leads/"+lead.ID+"/tag",
		map[string]string{"tag": "follow_up"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateTagUnknownTagRejected(t *testing.T) {
	srv, database := newTestServer(t)
	lead := seedLead(t, database, "Someone", models.LeadTagFollowUp, time.Now().UTC())

	rec := doJSON(t, srv.Handler(), http.MethodPatch, "/v1/leads/"+lead.ID+"/tag",
		map[string]string{"tag": "bogus"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTagMissingLead(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPatch, "/v1/leads/nope/tag",
		map[string]string{"tag": "missed"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleEndpoint(t *testing.T) {
	srv, database := newTestServer(t)
	lead := seedLead(t, database, "Snoozer", models.LeadTagFollowUp, time.Now().UTC().Add(-time.Hour))

	rec := doJSON(t, srv.Handler(), http.MethodPatch, "/v1/leads/"+lead.ID+"/schedule",
		map[string]int{"add_minutes": 10})
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := db.NewLeadRepository(database).Get(context.Background(), lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FollowUpAt)
	require.WithinDuration(t, time.Now().UTC().Add(10*time.Minute), *got.FollowUpAt, 5*time.Second)
}

func TestRescheduleRejectsNonPositive(t *testing.T) {
	srv, database := newTestServer(t)
	lead := seedLead(t, database, "Snoozer", models.LeadTagFollowUp, time.Now().UTC())

	rec := doJSON(t, srv.Handler(), http.MethodPatch, "/v1/leads/"+lead.ID+"/schedule",
		map[string]int{"add_minutes": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkReadEndpoint(t *testing.T) {
	srv, database := newTestServer(t)
	lead := seedLead(t, database, "Reader", models.LeadTagFollowUp, time.Now().UTC())

	rec := doJSON(t, srv.Handler(), http.MethodPatch, "/v1/leads/"+lead.ID+"/read", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := db.NewLeadRepository(database).Get(context.Background(), lead.ID)
	require.NoError(t, err)
	require.True(t, got.Read)
}

func TestCreateLeadEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/leads", map[string]any{
		"name":        "New Lead",
		"tag":         "new",
		"priority":    "medium",
		"stage_count": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	listRec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/leads", nil)
	require.Equal(t, http.StatusOK, listRec.Code)

	var leads []models.Lead
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
}

func TestCreateLeadValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/leads", map[string]any{
		"name": "",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDueMeetingsEndpoint(t *testing.T) {
	srv, database := newTestServer(t)
	lead := seedLead(t, database, "Meeting Lead", models.LeadTagTrending, time.Now().UTC())

	createRec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/meetings", map[string]any{
		"lead_id":      lead.ID,
		"title":        "Demo call",
		"scheduled_at": time.Now().UTC().Add(-time.Minute).Format(time.RFC3339),
		"attendees":    []string{"ada@example.com"},
	})
	require.Equal(t, http.StatusCreated, createRec.Code)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/due/meetings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var meetings []models.DueMeeting
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meetings))
	require.Len(t, meetings, 1)
	require.Equal(t, "Demo call", meetings[0].Title)
	require.Equal(t, lead.ID, meetings[0].LeadID)
}

func TestRecentEventsEndpoint(t *testing.T) {
	srv, database := newTestServer(t)

	repo := db.NewEventRepository(database)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(context.Background(), &models.Event{
			Type:       models.EventTypeReminderAdmitted,
			EntityType: models.EntityTypeLead,
			EntityID:   fmt.Sprintf("lead-%d", i),
		}))
	}

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/events?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
}
