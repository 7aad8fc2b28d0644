// Package session owns the one draft of an outing. The Controller loads the
// roster, forwards commands to the draft state machine, turns a completed
// draft into a foursome assignment and publishes every change as an event.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnboyce/golf-outing-manager/internal/dal"
	"github.com/johnboyce/golf-outing-manager/internal/draft"
	"github.com/johnboyce/golf-outing-manager/internal/foursomes"
	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/metrics"
	"github.com/johnboyce/golf-outing-manager/internal/models"
	"github.com/johnboyce/golf-outing-manager/internal/pubsub"
	"github.com/johnboyce/golf-outing-manager/internal/roster"
)

// Archive stores commissioned drafts.
type Archive interface {
	SaveDraft(ctx context.Context, draft *models.CommissionedDraft) error
	LatestDraft(ctx context.Context) (*models.CommissionedDraft, error)
}

// Controller serializes every command against a single draft. Commands run
// to completion under one lock; only the roster fetch happens outside it.
type Controller struct {
	source    roster.Source
	archive   Archive
	events    pubsub.Publisher
	metrics   *metrics.Recorder
	allocator *foursomes.Allocator
	now       func() time.Time

	mu           sync.Mutex
	draft        *draft.Draft
	courses      []models.Course
	loading      bool
	assignment   *models.Assignment
	commissioned *models.CommissionedDraft
}

// New creates a controller with no roster loaded. archive, events and rec may
// be nil; a nil allocator gets an unseeded one.
func New(source roster.Source, archive Archive, events pubsub.Publisher, rec *metrics.Recorder, allocator *foursomes.Allocator) *Controller {
	if allocator == nil {
		allocator = foursomes.NewAllocator()
	}
	return &Controller{
		source:    source,
		archive:   archive,
		events:    events,
		metrics:   rec,
		allocator: allocator,
		now:       time.Now,
	}
}

// LoadRoster fetches players and courses and replaces the session with a
// fresh NotStarted draft over them. Commands are rejected with NotReady while
// the fetch is outstanding. On failure the previous session is kept and the
// error wraps ErrRosterUnavailable.
func (c *Controller) LoadRoster(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.metrics.RecordCommand("load_roster", time.Since(start), draft.Kind(err)) }()

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return fmt.Errorf("%w: roster load already in progress", draft.ErrNotReady)
	}
	c.loading = true
	c.mu.Unlock()

	players, courses, err := c.fetch(ctx)
	c.metrics.RecordRosterFetch(len(players), time.Since(start), err)

	var d *draft.Draft
	if err == nil {
		d, err = draft.New(players)
		if err != nil {
			err = fmt.Errorf("%w: %w", draft.ErrRosterUnavailable, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		logger.Error("Failed to load roster", "error", err)
		return err
	}

	c.draft = d
	c.courses = courses
	c.assignment = nil
	c.commissioned = nil

	logger.Info("Roster loaded", "players", len(players), "courses", len(courses))
	c.publish(pubsub.EventRosterLoaded, map[string]any{
		"players": len(players),
		"courses": len(courses),
	})
	return nil
}

func (c *Controller) fetch(ctx context.Context) ([]models.Player, []models.Course, error) {
	players, err := c.source.ListPlayers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: players: %w", draft.ErrRosterUnavailable, err)
	}
	courses, err := c.source.ListCourses(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: courses: %w", draft.ErrRosterUnavailable, err)
	}
	return players, courses, nil
}

// ready returns the draft when commands may run against it. Callers hold mu.
func (c *Controller) ready() (*draft.Draft, error) {
	if c.loading {
		return nil, fmt.Errorf("%w: roster is loading", draft.ErrNotReady)
	}
	if c.draft == nil {
		return nil, fmt.Errorf("%w: roster not loaded", draft.ErrNotReady)
	}
	return c.draft, nil
}

// SelectCaptains seats a captain on each team.
func (c *Controller) SelectCaptains(teamOneID, teamTwoID string) (err error) {
	defer c.record("select_captains", time.Now(), &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.ready()
	if err != nil {
		return err
	}
	if err := d.SelectCaptains(teamOneID, teamTwoID); err != nil {
		return err
	}

	snap := d.Snapshot()
	c.publish(pubsub.EventCaptains, map[string]any{
		"teamOne": teamOneID,
		"teamTwo": teamTwoID,
		"names":   []string{snap.TeamOne.Name, snap.TeamTwo.Name},
	})
	return nil
}

// StartDraft opens the draft with team one on the clock.
func (c *Controller) StartDraft() (err error) {
	defer c.record("start", time.Now(), &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.ready()
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}

	c.publish(pubsub.EventDraftStarted, map[string]any{"currentTurn": d.CurrentTurn()})
	if d.Status() == models.DraftCompleted {
		c.publish(pubsub.EventDraftCompleted, nil)
	}
	return nil
}

// Pick drafts playerID for the team on the clock.
func (c *Controller) Pick(playerID string) (p models.Player, err error) {
	defer c.record("pick", time.Now(), &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.ready()
	if err != nil {
		return models.Player{}, err
	}
	p, err = d.Pick(playerID)
	if err != nil {
		return models.Player{}, err
	}

	logger.Debug("Player drafted", logger.FieldPlayerID, p.ID, logger.FieldTeam, p.Team)
	c.publish(pubsub.EventPick, map[string]any{
		"playerId":    p.ID,
		"playerName":  p.Name,
		"team":        p.Team,
		"currentTurn": d.CurrentTurn(),
		"status":      d.Status(),
	})
	if d.Status() == models.DraftCompleted {
		logger.Info("Draft completed", logger.FieldCount, len(d.Drafted()))
		c.publish(pubsub.EventDraftCompleted, nil)
	}
	return p, nil
}

// ResetDraft discards all draft progress and any assignment. It is valid in
// every state, including before the roster has loaded.
func (c *Controller) ResetDraft() {
	var err error
	defer c.record("reset", time.Now(), &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft != nil {
		c.draft.Reset()
	}
	c.assignment = nil
	c.commissioned = nil
	c.publish(pubsub.EventDraftReset, nil)
}

// Commission allocates the drafted players to foursomes. Calling it again
// reruns the allocation from scratch on the same rosters. The draft itself is
// never changed.
func (c *Controller) Commission() (a *models.Assignment, err error) {
	defer c.record("commission", time.Now(), &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.ready()
	if err != nil {
		return nil, err
	}
	if d.Status() != models.DraftCompleted {
		return nil, fmt.Errorf("%w: draft is %s", draft.ErrDraftNotComplete, d.Status())
	}

	players := d.Drafted()
	start := time.Now()
	a, err = c.allocator.Allocate(players, c.courses, nil)
	if errors.Is(err, foursomes.ErrNoCourses) {
		return nil, fmt.Errorf("%w: %w", draft.ErrNotReady, err)
	}
	if err != nil {
		return nil, err
	}
	c.metrics.RecordAllocation(len(players), time.Since(start))

	snap := d.Snapshot()
	c.assignment = a
	c.commissioned = &models.CommissionedDraft{
		ID:         uuid.NewString(),
		Timestamp:  c.now().UTC(),
		TeamOne:    snap.TeamOne,
		TeamTwo:    snap.TeamTwo,
		Assignment: a.Clone(),
	}

	logger.Info("Draft commissioned", "assignment_id", a.ID, logger.FieldCount, len(players))
	c.publish(pubsub.EventCommissioned, map[string]any{
		"assignmentId": a.ID,
		"courses":      len(a.CourseOrder),
		"players":      len(players),
	})
	return a.Clone(), nil
}

// State returns a snapshot of the draft. Before the roster loads it reports
// NotStarted with RosterLoaded false.
func (c *Controller) State() models.DraftSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft == nil {
		return models.DraftSnapshot{
			Status:           models.DraftNotStarted,
			TeamOne:          models.Team{Name: draft.TeamName(models.TeamOne, nil), Players: []models.Player{}},
			TeamTwo:          models.Team{Name: draft.TeamName(models.TeamTwo, nil), Players: []models.Player{}},
			AvailablePlayers: []models.Player{},
			PickNumber:       1,
		}
	}
	snap := c.draft.Snapshot()
	snap.RosterLoaded = !c.loading
	return snap
}

// Assignment returns the current assignment, or ErrNotCommissioned.
func (c *Controller) Assignment() (*models.Assignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.assignment == nil {
		return nil, fmt.Errorf("%w: no assignment yet", draft.ErrNotCommissioned)
	}
	return c.assignment.Clone(), nil
}

// Courses returns the courses of the loaded roster in play order.
func (c *Controller) Courses() []models.Course {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Course(nil), c.courses...)
}

// SaveDraft archives the commissioned draft under description. Saving the
// same commission again replaces the earlier record.
func (c *Controller) SaveDraft(ctx context.Context, description string) (saved *models.CommissionedDraft, err error) {
	defer c.record("save_draft", time.Now(), &err)

	c.mu.Lock()
	if c.commissioned == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: commission the draft before saving", draft.ErrNotCommissioned)
	}
	record := c.commissioned.Clone()
	c.mu.Unlock()

	if c.archive == nil {
		return nil, errors.New("no draft archive configured")
	}
	record.Description = description
	if err := c.archive.SaveDraft(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	c.publish(pubsub.EventDraftSaved, map[string]any{"id": record.ID, "description": description})
	return record, nil
}

// LatestDraft returns the most recently saved draft. It wraps dal.ErrNotFound
// when the archive is empty or missing.
func (c *Controller) LatestDraft(ctx context.Context) (*models.CommissionedDraft, error) {
	if c.archive == nil {
		return nil, fmt.Errorf("saved draft: %w", dal.ErrNotFound)
	}
	return c.archive.LatestDraft(ctx)
}

func (c *Controller) publish(eventType string, payload map[string]any) {
	if c.events == nil {
		return
	}
	c.events.Publish(pubsub.NewEvent(eventType, payload))
}

func (c *Controller) record(command string, start time.Time, err *error) {
	kind := draft.Kind(*err)
	if kind != "" {
		logger.Debug("Command rejected", "command", command, "kind", kind, "error", *err)
	}
	c.metrics.RecordCommand(command, time.Since(start), kind)
}
