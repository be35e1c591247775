package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevaro/leadline/internal/db"
	"github.com/sevaro/leadline/internal/logging"
	"github.com/sevaro/leadline/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the local lead store with demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed() error {
	logger := logging.Component("seed")

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	ctx := context.Background()
	leads := db.NewLeadRepository(database)
	meetings := db.NewMeetingRepository(database)

	now := time.Now().UTC()
	past := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}
	future := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	demo := []*models.Lead{
		{Name: "Ada Lovelace", Tag: models.LeadTagFollowUp, Priority: models.PriorityHigh, StageIndex: 2, StageCount: 5, FollowUpAt: past(3 * time.Minute)},
		{Name: "Grace Hopper", Tag: models.LeadTagFollowUp, Priority: models.PriorityMedium, StageIndex: 1, StageCount: 4, FollowUpAt: past(10 * time.Minute)},
		{Name: "Alan Kay", Tag: models.LeadTagNotConnected, Priority: models.PriorityLow, StageIndex: 0, StageCount: 3, FollowUpAt: past(time.Minute)},
		{Name: "Barbara Liskov", Tag: models.LeadTagTrending, Priority: models.PriorityHigh, StageIndex: 3, StageCount: 5, FollowUpAt: future(30 * time.Minute)},
		{Name: "Dennis Ritchie", Tag: models.LeadTagNew, Priority: models.PriorityMedium, StageIndex: 0, StageCount: 4},
	}

	for _, lead := range demo {
		if err := leads.Create(ctx, lead); err != nil {
			return fmt.Errorf("failed to seed lead %q: %w", lead.Name, err)
		}
	}

	meeting := &models.Meeting{
		LeadID:      demo[3].ID,
		Title:       "Product walkthrough",
		ScheduledAt: now.Add(5 * time.Minute),
		Attendees:   []string{"barbara@example.com", "sales@sevaro.io"},
	}
	if err := meetings.Create(ctx, meeting); err != nil {
		return fmt.Errorf("failed to seed meeting: %w", err)
	}

	logger.Info().
		Int("leads", len(demo)).
		Int("meetings", 1).
		Str("database", cfg.DatabasePath()).
		Msg("seeded demo data")
	return nil
}
