package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sevaro/leadline/internal/models"
)

// Lead repository errors.
var (
	ErrLeadNotFound      = errors.New("lead not found")
	ErrInvalidTransition = errors.New("invalid tag transition")
)

// LeadRepository handles lead persistence and the reminder due query.
type LeadRepository struct {
	db *DB
}

// NewLeadRepository creates a new LeadRepository.
func NewLeadRepository(db *DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a new lead. A missing id is generated; timestamps are
// set to now.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.Tag == "" {
		lead.Tag = models.LeadTagNew
	}
	if lead.Priority == "" {
		lead.Priority = models.PriorityMedium
	}
	if err := lead.Validate(); err != nil {
		return err
	}

	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads (
			id, name, tag, priority, stage_index, stage_count,
			follow_up_at, read, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lead.ID,
		lead.Name,
		string(lead.Tag),
		string(lead.Priority),
		lead.StageIndex,
		lead.StageCount,
		nullableTimeToValue(lead.FollowUpAt),
		boolToInt(lead.Read),
		timeToString(lead.CreatedAt),
		timeToString(lead.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// Get retrieves a lead by id.
func (r *LeadRepository) Get(ctx context.Context, id string) (*models.Lead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, tag, priority, stage_index, stage_count,
		       follow_up_at, read, created_at, updated_at
		FROM leads WHERE id = ?
	`, id)
	return scanLead(row)
}

// List returns all leads ordered by creation time.
func (r *LeadRepository) List(ctx context.Context) ([]*models.Lead, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, tag, priority, stage_index, stage_count,
		       follow_up_at, read, created_at, updated_at
		FROM leads ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateTag changes a lead's tag, preserving every other field. The
// transition must be allowed by the lead lifecycle; terminal tags accept
// none. Returns ErrInvalidTransition otherwise.
func (r *LeadRepository) UpdateTag(ctx context.Context, id string, tag models.LeadTag) error {
	lead, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !lead.Tag.CanTransitionTo(tag) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, lead.Tag, tag)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE leads SET tag = ?, updated_at = ? WHERE id = ?
	`, string(tag), timeToString(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to update lead tag: %w", err)
	}
	return nil
}

// Reschedule moves a lead's follow-up time to now + addMinutes. The new
// due time is anchored to the current moment, not the previous schedule.
func (r *LeadRepository) Reschedule(ctx context.Context, id string, addMinutes int) error {
	if addMinutes <= 0 {
		return fmt.Errorf("add_minutes must be positive, got %d", addMinutes)
	}
	now := time.Now().UTC()
	followUpAt := now.Add(time.Duration(addMinutes) * time.Minute)

	result, err := r.db.ExecContext(ctx, `
		UPDATE leads SET follow_up_at = ?, updated_at = ? WHERE id = ?
	`, timeToString(followUpAt), timeToString(now), id)
	if err != nil {
		return fmt.Errorf("failed to reschedule lead: %w", err)
	}
	return requireRowAffected(result)
}

// MarkRead flags a lead's reminder as read.
func (r *LeadRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE leads SET read = 1, updated_at = ? WHERE id = ?
	`, timeToString(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to mark lead read: %w", err)
	}
	return requireRowAffected(result)
}

// DueReminders returns the reminder due set as of now: leads whose
// follow-up time has arrived and whose tag is still actionable. Leads
// with terminal tags never reappear here. Order is the server-determined
// admission order: priority first, then oldest due time.
func (r *LeadRepository) DueReminders(ctx context.Context, now time.Time) ([]models.DueReminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, tag, priority, stage_index, stage_count,
		       follow_up_at, read
		FROM leads
		WHERE follow_up_at IS NOT NULL
		  AND follow_up_at <= ?
		  AND tag NOT IN ('missed', 'dropped', 'won')
		ORDER BY CASE priority
			WHEN 'high' THEN 0
			WHEN 'medium' THEN 1
			ELSE 2
		END, follow_up_at
	`, timeToString(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []models.DueReminder
	for rows.Next() {
		var (
			reminder   models.DueReminder
			tag        string
			priority   string
			followUpAt sql.NullString
			read       int
		)
		if err := rows.Scan(
			&reminder.ID,
			&reminder.Name,
			&tag,
			&priority,
			&reminder.StageIndex,
			&reminder.StageCount,
			&followUpAt,
			&read,
		); err != nil {
			return nil, fmt.Errorf("failed to scan due reminder: %w", err)
		}
		reminder.Tag = models.LeadTag(tag)
		reminder.Priority = models.Priority(priority)
		if t := parseNullableTime(followUpAt); t != nil {
			reminder.ScheduledAt = *t
		}
		reminder.Read = read != 0
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrLeadNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		lead       models.Lead
		tag        string
		priority   string
		followUpAt sql.NullString
		read       int
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&tag,
		&priority,
		&lead.StageIndex,
		&lead.StageCount,
		&followUpAt,
		&read,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}

	lead.Tag = models.LeadTag(tag)
	lead.Priority = models.Priority(priority)
	lead.FollowUpAt = parseNullableTime(followUpAt)
	lead.Read = read != 0
	lead.CreatedAt = parseTime(createdAt)
	lead.UpdatedAt = parseTime(updatedAt)
	return &lead, nil
}
