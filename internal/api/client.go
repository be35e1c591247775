// Package api implements the HTTP client for the Leadline due-poll and
// lead mutation contract. It satisfies the engine's DueSource and
// LeadMutator ports.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sevaro/leadline/internal/logging"
	"github.com/sevaro/leadline/internal/models"
)

// Client errors.
var (
	ErrNotFound = errors.New("lead not found")
	ErrConflict = errors.New("tag transition rejected")
)

const defaultTimeout = 10 * time.Second

// Client talks to a Leadline server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, for tests and
// custom transports.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.http = httpClient
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logging.Component("api-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// reminderPayload is the wire shape of a due reminder. Timestamps travel
// as strings so a single unparsable value degrades to the zero time
// instead of failing the record.
type reminderPayload struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ScheduledAt string          `json:"scheduled_at"`
	Tag         models.LeadTag  `json:"tag"`
	Priority    models.Priority `json:"priority"`
	StageIndex  int             `json:"stage_index"`
	StageCount  int             `json:"stage_count"`
	Read        bool            `json:"read"`
}

type meetingPayload struct {
	ID          string   `json:"id"`
	LeadID      string   `json:"lead_id"`
	Title       string   `json:"title"`
	ScheduledAt string   `json:"scheduled_at"`
	Attendees   []string `json:"attendees"`
}

// DueReminders fetches the current reminder due set. A malformed element
// is skipped with a warning; one bad record never aborts the pass.
func (c *Client) DueReminders(ctx context.Context) ([]models.DueReminder, error) {
	raw, err := c.getList(ctx, "/v1/due/reminders")
	if err != nil {
		return nil, err
	}

	reminders := make([]models.DueReminder, 0, len(raw))
	for _, element := range raw {
		var payload reminderPayload
		if err := json.Unmarshal(element, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("skipping malformed due reminder")
			continue
		}
		if payload.ID == "" {
			c.logger.Warn().Msg("skipping due reminder without id")
			continue
		}
		reminders = append(reminders, models.DueReminder{
			ID:          payload.ID,
			Name:        payload.Name,
			ScheduledAt: c.parseTime(payload.ScheduledAt, payload.ID),
			Tag:         payload.Tag,
			Priority:    payload.Priority,
			StageIndex:  payload.StageIndex,
			StageCount:  payload.StageCount,
			Read:        payload.Read,
		})
	}
	return reminders, nil
}

// DueMeetings fetches the current meeting due set with the same per-item
// tolerance as DueReminders. A missing attendee list decodes to empty.
func (c *Client) DueMeetings(ctx context.Context) ([]models.DueMeeting, error) {
	raw, err := c.getList(ctx, "/v1/due/meetings")
	if err != nil {
		return nil, err
	}

	meetings := make([]models.DueMeeting, 0, len(raw))
	for _, element := range raw {
		var payload meetingPayload
		if err := json.Unmarshal(element, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("skipping malformed due meeting")
			continue
		}
		if payload.ID == "" {
			c.logger.Warn().Msg("skipping due meeting without id")
			continue
		}
		attendees := payload.Attendees
		if attendees == nil {
			attendees = []string{}
		}
		meetings = append(meetings, models.DueMeeting{
			ID:          payload.ID,
			LeadID:      payload.LeadID,
			Title:       payload.Title,
			ScheduledAt: c.parseTime(payload.ScheduledAt, payload.ID),
			Attendees:   attendees,
		})
	}
	return meetings, nil
}

// UpdateLeadTag sets the lead's tag, preserving its other fields.
func (c *Client) UpdateLeadTag(ctx context.Context, id string, tag models.LeadTag) error {
	return c.patch(ctx, "/v1/leads/"+id+"/tag", map[string]any{"tag": tag})
}

// RescheduleLead moves the lead's due time to server-now + addMinutes.
func (c *Client) RescheduleLead(ctx context.Context, id string, addMinutes int) error {
	return c.patch(ctx, "/v1/leads/"+id+"/schedule", map[string]any{"add_minutes": addMinutes})
}

// MarkRead flags the lead's reminder as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.patch(ctx, "/v1/leads/"+id+"/read", nil)
}

func (c *Client) parseTime(value, id string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		c.logger.Warn().Str("id", id).Str("scheduled_at", value).Msg("unparsable timestamp, defaulting")
		return time.Time{}
	}
	return parsed
}

func (c *Client) getList(ctx context.Context, path string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return raw, nil
}

func (c *Client) patch(ctx context.Context, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("patching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, payload.Error)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, payload.Error)
	default:
		if payload.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
}
