package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sevaro/leadline/internal/api"
	"github.com/sevaro/leadline/internal/db"
	"github.com/sevaro/leadline/internal/engine"
	"github.com/sevaro/leadline/internal/events"
	"github.com/sevaro/leadline/internal/logging"
	"github.com/sevaro/leadline/internal/tui"
)

var watchNoHistory bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the reminder engine with the notification shell",
	Long: `Watch polls the lead store for due follow-ups and imminent meetings
and shows at most one notification per class. Follow-ups left unanswered
past the grace window are marked missed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoHistory, "no-history", false, "disable persisting engine events to the local database")
	rootCmd.AddCommand(watchCmd)
}

func runWatch() error {
	logger := logging.Component("watch")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisherOpts []events.PublisherOption
	if !watchNoHistory {
		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create data directories: %w", err)
		}
		database, err := db.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		publisherOpts = append(publisherOpts, events.WithRepository(db.NewEventRepository(database)))
	}

	publisher := events.NewInMemoryPublisher(publisherOpts...)
	defer publisher.Close()

	client := api.NewClient(cfg.Server.BaseURL)

	eng := engine.New(engine.Config{
		ReminderPollInterval:    cfg.Engine.ReminderPollInterval,
		MeetingPollInterval:     cfg.Engine.MeetingPollInterval,
		EscalationCheckInterval: cfg.Engine.EscalationCheckInterval,
		EscalationGrace:         cfg.Engine.EscalationGrace,
		SnoozeDefaultMinutes:    cfg.Engine.SnoozeDefaultMinutes,
	}, client, client, newNavigator(cfg.Server.BaseURL), engine.WithPublisher(publisher))

	model, err := tui.New(eng, publisher, tui.Config{
		ShowTimestamps: cfg.TUI.ShowTimestamps,
		Bell:           cfg.TUI.Bell,
	})
	if err != nil {
		return err
	}

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer func() {
		if err := eng.Stop(); err != nil {
			logger.Warn().Err(err).Msg("engine stop failed")
		}
	}()

	logger.Info().
		Str("base_url", cfg.Server.BaseURL).
		Dur("reminder_poll", cfg.Engine.ReminderPollInterval).
		Dur("meeting_poll", cfg.Engine.MeetingPollInterval).
		Msg("watching lead store")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer stop()
		return tui.Run(ctx, model)
	})

	return group.Wait()
}

// navigator logs navigation intents with the target URL. A desktop
// build would open these in a browser.
type navigator struct {
	baseURL string
	logger  zerolog.Logger
}

func newNavigator(baseURL string) *navigator {
	return &navigator{
		baseURL: baseURL,
		logger:  logging.Component("navigator"),
	}
}

func (n *navigator) OpenLeadProfile(id string) {
	n.logger.Info().
		Str("lead_id", id).
		Str("url", fmt.Sprintf("%s/leads/%s", n.baseURL, id)).
		Msg("open lead profile")
}

func (n *navigator) OpenMeetingContext(leadID string) {
	n.logger.Info().
		Str("lead_id", leadID).
		Str("url", fmt.Sprintf("%s/leads/%s", n.baseURL, leadID)).
		Msg("open meeting context")
}
