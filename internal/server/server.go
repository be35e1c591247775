// Package server exposes the Leadline lead store over HTTP: the due-poll
// and mutation contract the engine consumes, plus minimal seeding
// endpoints for demos and tests.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sevaro/leadline/internal/db"
	"github.com/sevaro/leadline/internal/logging"
	"github.com/sevaro/leadline/internal/models"
)

// Config contains server settings.
type Config struct {
	// Listen is the host:port to bind.
	Listen string

	// MeetingDueWindow is how long past its start a meeting stays due.
	MeetingDueWindow time.Duration

	// Debug enables gin debug mode.
	Debug bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Listen:           "127.0.0.1:8316",
		MeetingDueWindow: 15 * time.Minute,
	}
}

// Server serves the lead store REST API.
type Server struct {
	config   Config
	leads    *db.LeadRepository
	meetings *db.MeetingRepository
	events   *db.EventRepository
	engine   *gin.Engine
	http     *http.Server
	logger   zerolog.Logger
}

// New creates a Server over the given database.
func New(config Config, database *db.DB) *Server {
	if config.Listen == "" {
		config.Listen = DefaultConfig().Listen
	}
	if config.MeetingDueWindow <= 0 {
		config.MeetingDueWindow = DefaultConfig().MeetingDueWindow
	}
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   config,
		leads:    db.NewLeadRepository(database),
		meetings: db.NewMeetingRepository(database),
		events:   db.NewEventRepository(database),
		logger:   logging.Component("server"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())
	s.registerRoutes(engine)
	s.engine = engine
	return s
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.config.Listen).Msg("server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		s.logger.Info().Msg("server stopped")
		return nil
	}
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	v1 := engine.Group("/v1")

	v1.GET("/due/reminders", s.handleDueReminders)
	v1.GET("/due/meetings", s.handleDueMeetings)

	v1.PATCH("/leads/:id/tag", s.handleUpdateTag)
	v1.PATCH("/leads/:id/schedule", s.handleReschedule)
	v1.PATCH("/leads/:id/read", s.handleMarkRead)

	v1.POST("/leads", s.handleCreateLead)
	v1.GET("/leads", s.handleListLeads)
	v1.POST("/meetings", s.handleCreateMeeting)
	v1.GET("/events", s.handleRecentEvents)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleDueReminders(c *gin.Context) {
	reminders, err := s.leads.DueReminders(c.Request.Context(), time.Now().UTC())
	if err != nil {
		s.fail(c, err)
		return
	}
	if reminders == nil {
		reminders = []models.DueReminder{}
	}
	c.JSON(http.StatusOK, reminders)
}

func (s *Server) handleDueMeetings(c *gin.Context) {
	meetings, err := s.meetings.DueMeetings(c.Request.Context(), time.Now().UTC(), s.config.MeetingDueWindow)
	if err != nil {
		s.fail(c, err)
		return
	}
	if meetings == nil {
		meetings = []models.DueMeeting{}
	}
	c.JSON(http.StatusOK, meetings)
}

func (s *Server) handleUpdateTag(c *gin.Context) {
	var body struct {
		Tag models.LeadTag `json:"tag"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !body.Tag.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown tag %q", body.Tag)})
		return
	}
	if err := s.leads.UpdateTag(c.Request.Context(), c.Param("id"), body.Tag); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReschedule(c *gin.Context) {
	var body struct {
		AddMinutes int `json:"add_minutes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.AddMinutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "add_minutes must be positive"})
		return
	}
	if err := s.leads.Reschedule(c.Request.Context(), c.Param("id"), body.AddMinutes); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	if err := s.leads.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCreateLead(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.leads.Create(c.Request.Context(), &lead); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (s *Server) handleListLeads(c *gin.Context) {
	leads, err := s.leads.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	c.JSON(http.StatusOK, leads)
}

func (s *Server) handleCreateMeeting(c *gin.Context) {
	var meeting models.Meeting
	if err := c.ShouldBindJSON(&meeting); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.meetings.Create(c.Request.Context(), &meeting); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, meeting)
}

func (s *Server) handleRecentEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}
	events, err := s.events.Recent(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// fail maps repository errors to HTTP status codes.
func (s *Server) fail(c *gin.Context, err error) {
	var validationErrs *models.ValidationErrors
	switch {
	case errors.Is(err, db.ErrLeadNotFound), errors.Is(err, db.ErrMeetingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
