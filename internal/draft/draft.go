// Package draft implements the two-captain draft state machine.
//
// A Draft moves NotStarted -> InProgress -> Completed. Every player in the
// roster is at all times in exactly one of the available pool, team one or
// team two; picking removes from the single pool, so no player can be drafted
// twice. Turns alternate strictly between the teams with team one picking
// first.
package draft

import (
	"fmt"
	"slices"

	"github.com/johnboyce/golf-outing-manager/internal/models"
)

type side struct {
	captain *models.Player
	players []models.Player
}

// Draft holds the mutable state of one draft. It is not safe for concurrent
// use; the session controller serializes access.
type Draft struct {
	roster    []models.Player
	index     map[string]int
	available []models.Player
	teams     map[models.TeamID]*side
	turn      models.TeamID
	status    models.DraftStatus
	picks     int
}

// New creates a draft over the given roster. Player ids must be non-empty and
// unique. Any team tag on the input is cleared.
func New(players []models.Player) (*Draft, error) {
	roster := make([]models.Player, len(players))
	index := make(map[string]int, len(players))
	for i, p := range players {
		if p.ID == "" {
			return nil, fmt.Errorf("player %q has no id", p.Name)
		}
		if _, dup := index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate player id %q", p.ID)
		}
		p.Team = ""
		roster[i] = p
		index[p.ID] = i
	}

	d := &Draft{roster: roster, index: index}
	d.Reset()
	return d, nil
}

// Reset returns the draft to NotStarted with the full roster available and
// both teams empty. It is valid from any state.
func (d *Draft) Reset() {
	d.available = slices.Clone(d.roster)
	d.teams = map[models.TeamID]*side{
		models.TeamOne: {},
		models.TeamTwo: {},
	}
	d.turn = ""
	d.status = models.DraftNotStarted
	d.picks = 0
}

// Status reports the current lifecycle phase.
func (d *Draft) Status() models.DraftStatus {
	return d.status
}

// CurrentTurn reports which team picks next. It is empty unless the draft is
// in progress.
func (d *Draft) CurrentTurn() models.TeamID {
	return d.turn
}

// SelectCaptains assigns a captain to each team. Calling it again before the
// draft starts replaces the earlier selection.
func (d *Draft) SelectCaptains(teamOneID, teamTwoID string) error {
	if d.status != models.DraftNotStarted {
		return fmt.Errorf("%w: captains can only be chosen before the draft starts", ErrInvalidSelection)
	}
	if teamOneID == "" || teamTwoID == "" {
		return fmt.Errorf("%w: both captains are required", ErrInvalidSelection)
	}
	if teamOneID == teamTwoID {
		return fmt.Errorf("%w: captains must be different players", ErrInvalidSelection)
	}
	for _, id := range []string{teamOneID, teamTwoID} {
		if _, ok := d.index[id]; !ok {
			return fmt.Errorf("%w: player %q is not on the roster", ErrInvalidSelection, id)
		}
	}

	// Before the draft starts the only players off the pool are the current
	// captains, so releasing them is a plain reset.
	d.Reset()
	d.seatCaptain(models.TeamOne, teamOneID)
	d.seatCaptain(models.TeamTwo, teamTwoID)
	return nil
}

func (d *Draft) seatCaptain(team models.TeamID, id string) {
	p, _ := d.take(id)
	p.Team = team
	s := d.teams[team]
	s.captain = &p
	s.players = []models.Player{p}
}

// Start opens the draft with team one on the clock. Both captains must be
// seated first.
func (d *Draft) Start() error {
	if d.status != models.DraftNotStarted {
		return fmt.Errorf("%w: draft already %s", ErrNotReady, d.status)
	}
	if d.teams[models.TeamOne].captain == nil || d.teams[models.TeamTwo].captain == nil {
		return fmt.Errorf("%w: both captains must be selected", ErrNotReady)
	}

	d.status = models.DraftInProgress
	d.turn = models.TeamOne
	if len(d.available) == 0 {
		d.complete()
	}
	return nil
}

// Pick drafts playerID onto the team whose turn it is and passes the turn.
// The pick that empties the pool completes the draft instead of passing.
func (d *Draft) Pick(playerID string) (models.Player, error) {
	if d.status != models.DraftInProgress {
		return models.Player{}, fmt.Errorf("%w: draft is %s", ErrNotReady, d.status)
	}
	p, ok := d.take(playerID)
	if !ok {
		return models.Player{}, fmt.Errorf("%w: %q is not available", ErrUnknownPlayer, playerID)
	}

	p.Team = d.turn
	s := d.teams[d.turn]
	s.players = append(s.players, p)
	d.picks++

	if len(d.available) == 0 {
		d.complete()
	} else {
		d.turn = d.turn.Other()
	}
	return p, nil
}

func (d *Draft) complete() {
	d.status = models.DraftCompleted
}

// take removes id from the available pool.
func (d *Draft) take(id string) (models.Player, bool) {
	i := slices.IndexFunc(d.available, func(p models.Player) bool { return p.ID == id })
	if i < 0 {
		return models.Player{}, false
	}
	p := d.available[i]
	d.available = slices.Delete(d.available, i, i+1)
	return p, true
}

// Roster returns the initial roster in registration order.
func (d *Draft) Roster() []models.Player {
	return slices.Clone(d.roster)
}

// Drafted returns every player on a team, team one first, each tagged with
// its team.
func (d *Draft) Drafted() []models.Player {
	one, two := d.teams[models.TeamOne].players, d.teams[models.TeamTwo].players
	out := make([]models.Player, 0, len(one)+len(two))
	out = append(out, one...)
	return append(out, two...)
}

// Snapshot returns a deep copy of the state for read-only consumers.
func (d *Draft) Snapshot() models.DraftSnapshot {
	return models.DraftSnapshot{
		Status:           d.status,
		RosterLoaded:     true,
		TeamOne:          d.team(models.TeamOne),
		TeamTwo:          d.team(models.TeamTwo),
		AvailablePlayers: slices.Clone(d.available),
		CurrentTurn:      d.turn,
		PickNumber:       d.picks + 1,
		Started:          d.status != models.DraftNotStarted,
		Completed:        d.status == models.DraftCompleted,
	}
}

func (d *Draft) team(id models.TeamID) models.Team {
	s := d.teams[id]
	t := models.Team{
		Name:    TeamName(id, s.captain),
		Players: slices.Clone(s.players),
	}
	if t.Players == nil {
		t.Players = []models.Player{}
	}
	if s.captain != nil {
		c := *s.captain
		t.Captain = &c
	}
	return t
}

// TeamName is "Team <captain nickname>" once a captain is seated.
func TeamName(id models.TeamID, captain *models.Player) string {
	if captain != nil {
		return "Team " + captain.DisplayName()
	}
	if id == models.TeamTwo {
		return "Team Two"
	}
	return "Team One"
}
